package blob

import (
	"bytes"
	"encoding/binary"
	"github.com/ValentinKolb/envstore/lib/common"
	"reflect"
	"testing"
)

// TestEncodeExample checks the single record example from the format description
func TestEncodeExample(t *testing.T) {
	payload, err := Encode([]Record{{Name: "a", Value: []byte("1")}}, 64)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(payload) != 64 {
		t.Fatalf("payload length = %d, want 64", len(payload))
	}
	if !bytes.Equal(payload[:5], []byte("a=1\x00\x00")) {
		t.Errorf("payload prefix = %q, want %q", payload[:5], "a=1\x00\x00")
	}
	if !bytes.Equal(payload[5:], make([]byte, 59)) {
		t.Errorf("expected zero padding after the terminator")
	}

	records, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(records) != 1 || records[0].Name != "a" || string(records[0].Value) != "1" {
		t.Errorf("Decode() = %v, want [a=1]", records)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
	}{
		{name: "empty", records: nil},
		{name: "single", records: []Record{{Name: "bootdelay", Value: []byte("3")}}},
		{name: "empty value", records: []Record{{Name: "flag", Value: []byte{}}}},
		{name: "value with equals", records: []Record{{Name: "bootargs", Value: []byte("console=ttyS0,115200 root=/dev/mmcblk0p2")}}},
		{name: "utf8", records: []Record{{Name: "hostname", Value: []byte("käse")}}},
		{
			name: "order preserved",
			records: []Record{
				{Name: "zeta", Value: []byte("1")},
				{Name: "alpha", Value: []byte("2")},
				{Name: "mid", Value: []byte("3")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capacity := EncodedSize(tt.records)
			payload, err := Encode(tt.records, capacity)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			got, err := Decode(payload)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if len(got) != len(tt.records) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.records))
			}
			for i := range got {
				if got[i].Name != tt.records[i].Name || !bytes.Equal(got[i].Value, tt.records[i].Value) {
					t.Errorf("record %d = %v, want %v", i, got[i], tt.records[i])
				}
			}
		})
	}
}

func TestEncodeTooLarge(t *testing.T) {
	records := []Record{{Name: "a", Value: []byte("1")}}

	// "a=1\0" + terminator = 5 bytes
	if _, err := Encode(records, 5); err != nil {
		t.Errorf("exact fit should succeed: %v", err)
	}
	payload, err := Encode(records, 4)
	if !common.IsCode(err, common.RetCEncodeTooLarge) {
		t.Errorf("expected EncodeTooLarge, got %v", err)
	}
	if payload != nil {
		t.Errorf("no partial output expected, got %q", payload)
	}
}

func TestEncodeRejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name   string
		record Record
	}{
		{name: "empty name", record: Record{Name: "", Value: []byte("x")}},
		{name: "equals in name", record: Record{Name: "a=b", Value: []byte("x")}},
		{name: "nul in name", record: Record{Name: "a\x00b", Value: []byte("x")}},
		{name: "nul in value", record: Record{Name: "a", Value: []byte("x\x00y")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Encode([]Record{tt.record}, 64); !common.IsCode(err, common.RetCMalformed) {
				t.Errorf("expected Malformed, got %v", err)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		code    common.RetCode
	}{
		{name: "empty buffer", payload: []byte{}, code: common.RetCTruncated},
		{name: "no nul", payload: []byte("a=1"), code: common.RetCTruncated},
		{name: "missing terminator", payload: []byte("a=1\x00"), code: common.RetCTruncated},
		{name: "missing equals", payload: []byte("a1\x00\x00"), code: common.RetCMalformed},
		{name: "empty name", payload: []byte("=1\x00\x00"), code: common.RetCMalformed},
		{name: "second record truncated", payload: []byte("a=1\x00b=2"), code: common.RetCTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.payload)
			if !common.IsCode(err, tt.code) {
				t.Errorf("Decode(%q) error = %v, want code %s", tt.payload, err, tt.code)
			}
		})
	}
}

func TestDecodeIgnoresDataAfterTerminator(t *testing.T) {
	records, err := Decode([]byte("a=1\x00\x00garbage"))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestDecodeCopiesValues(t *testing.T) {
	payload := []byte("a=1\x00\x00")
	records, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	payload[2] = 'X'
	if string(records[0].Value) != "1" {
		t.Errorf("decoded value must not alias the payload")
	}
}

func TestLayout(t *testing.T) {
	redund := Layout{Size: 64, Redundant: true}
	single := Layout{Size: 64}

	if redund.HeaderSize() != 5 || redund.Capacity() != 59 {
		t.Errorf("redundant layout header=%d capacity=%d", redund.HeaderSize(), redund.Capacity())
	}
	if single.HeaderSize() != 4 || single.Capacity() != 60 {
		t.Errorf("single layout header=%d capacity=%d", single.HeaderSize(), single.Capacity())
	}
	if err := (Layout{Size: 5, Redundant: true}).Validate(); err == nil {
		t.Errorf("a layout without payload room must not validate")
	}
}

func TestPackUnpack(t *testing.T) {
	layout := Layout{Size: 32, Redundant: true}
	payload, err := Encode([]Record{{Name: "ip", Value: []byte("10.0.0.2")}}, layout.Capacity())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	raw, err := layout.Pack(payload, FlagActive)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if binary.LittleEndian.Uint32(raw[:4]) != Checksum(payload) {
		t.Errorf("header checksum does not match payload checksum")
	}
	if raw[FlagOffset] != byte(FlagActive) {
		t.Errorf("flag byte = 0x%02x, want active", raw[FlagOffset])
	}

	b, err := layout.Unpack(raw)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if b.Flag != FlagActive || !b.Valid() {
		t.Errorf("unexpected blob state: flag=%s valid=%v", b.Flag, b.Valid())
	}

	// flipping the flag must not invalidate the copy
	raw[FlagOffset] = byte(FlagObsolete)
	b, _ = layout.Unpack(raw)
	if !b.Valid() || b.Flag != FlagObsolete {
		t.Errorf("flag flip changed validity: flag=%s valid=%v", b.Flag, b.Valid())
	}

	records, err := b.Records()
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if !reflect.DeepEqual(records, []Record{{Name: "ip", Value: []byte("10.0.0.2")}}) {
		t.Errorf("Records() = %v", records)
	}

	if _, err := layout.Unpack(raw[:10]); !common.IsCode(err, common.RetCTruncated) {
		t.Errorf("short copy should be reported as truncated, got %v", err)
	}
	if _, err := layout.Pack(payload[:3], FlagActive); err == nil {
		t.Errorf("Pack must reject payloads of the wrong size")
	}
}

func TestNonRedundantFlag(t *testing.T) {
	layout := Layout{Size: 16}
	payload, _ := Encode(nil, layout.Capacity())
	raw, _ := layout.Pack(payload, FlagObsolete)

	b, err := layout.Unpack(raw)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if b.Flag != FlagActive {
		t.Errorf("non-redundant copies are always active, got %s", b.Flag)
	}
}

// TestTamperDetection flips every bit of a payload and expects Verify to reject it
func TestTamperDetection(t *testing.T) {
	payload, err := Encode([]Record{
		{Name: "bootcmd", Value: []byte("run distro_bootcmd")},
		{Name: "ethaddr", Value: []byte("02:00:00:00:00:01")},
	}, 96)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	sum := Checksum(payload)

	for i := 0; i < len(payload)*8; i++ {
		tampered := append([]byte(nil), payload...)
		tampered[i/8] ^= 1 << (i % 8)
		if Verify(sum, tampered) {
			t.Fatalf("bit flip at bit %d was not detected", i)
		}
	}

	layout := Layout{Size: 96 + 5, Redundant: true}
	raw, _ := layout.Pack(payload, FlagActive)
	raw[len(raw)-1] ^= 0x80
	b, _ := layout.Unpack(raw)
	if _, err := b.Records(); !common.IsCode(err, common.RetCChecksumMismatch) {
		t.Errorf("expected ChecksumMismatch, got %v", err)
	}
}

func TestFlagString(t *testing.T) {
	if FlagActive.String() != "active" || FlagObsolete.String() != "obsolete" {
		t.Errorf("unexpected flag names")
	}
	if Flag(0x7f).Known() {
		t.Errorf("0x7f must be an unknown flag")
	}
	if Flag(0xff).String() != "unknown(0xff)" {
		t.Errorf("unexpected name for 0xff: %s", Flag(0xff).String())
	}
}

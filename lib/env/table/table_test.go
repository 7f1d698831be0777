package table

import (
	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/ValentinKolb/envstore/lib/env/blob"
	"reflect"
	"testing"
)

func TestSetGet(t *testing.T) {
	tbl := New()

	if tbl.IsDirty() {
		t.Errorf("new table must be clean")
	}
	if err := tbl.Set("bootdelay", []byte("3")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !tbl.IsDirty() {
		t.Errorf("table must be dirty after Set")
	}

	val, ok := tbl.Get("bootdelay")
	if !ok || string(val) != "3" {
		t.Errorf("Get() = %q, %v", val, ok)
	}

	// overwrite
	_ = tbl.Set("bootdelay", []byte("0"))
	val, _ = tbl.Get("bootdelay")
	if string(val) != "0" {
		t.Errorf("expected overwritten value, got %q", val)
	}
	if tbl.Len() != 1 {
		t.Errorf("overwrite must not add an entry, len=%d", tbl.Len())
	}

	// returned values are copies
	val[0] = 'X'
	val, _ = tbl.Get("bootdelay")
	if string(val) != "0" {
		t.Errorf("Get must return a copy")
	}

	if _, ok := tbl.Get("missing"); ok {
		t.Errorf("missing key reported as found")
	}
}

func TestSetSameValueKeepsClean(t *testing.T) {
	tbl, _ := FromRecords([]blob.Record{{Name: "a", Value: []byte("1")}})
	if tbl.IsDirty() {
		t.Fatalf("FromRecords must produce a clean table")
	}
	_ = tbl.Set("a", []byte("1"))
	if tbl.IsDirty() {
		t.Errorf("setting an identical value must not mark the table dirty")
	}
}

func TestSetValidation(t *testing.T) {
	tbl := New()
	for _, name := range []string{"", "a=b", "a\x00"} {
		if err := tbl.Set(name, []byte("x")); !common.IsCode(err, common.RetCInvalidName) {
			t.Errorf("Set(%q) error = %v, want InvalidName", name, err)
		}
	}
	if err := tbl.Set("a", []byte("x\x00")); !common.IsCode(err, common.RetCInvalidName) {
		t.Errorf("NUL in value should be rejected, got %v", err)
	}
	if tbl.IsDirty() || tbl.Len() != 0 {
		t.Errorf("rejected sets must not change the table")
	}
}

func TestUnsetIdempotent(t *testing.T) {
	tbl, _ := FromRecords([]blob.Record{
		{Name: "a", Value: []byte("1")},
		{Name: "b", Value: []byte("2")},
		{Name: "c", Value: []byte("3")},
	})

	tbl.Unset("b")
	once := tbl.All()
	tbl.Unset("b")
	twice := tbl.All()

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second unset changed the table: %v vs %v", once, twice)
	}
	if tbl.Has("b") {
		t.Errorf("b should be gone")
	}

	// index must still be right after the removal shifted entries
	val, ok := tbl.Get("c")
	if !ok || string(val) != "3" {
		t.Errorf("Get(c) after unset = %q, %v", val, ok)
	}

	clean, _ := FromRecords([]blob.Record{{Name: "a", Value: []byte("1")}})
	clean.Unset("missing")
	if clean.IsDirty() {
		t.Errorf("unset of a missing name must be a no-op")
	}
}

func TestOrderPreserved(t *testing.T) {
	tbl := New()
	for _, n := range []string{"zeta", "alpha", "mid"} {
		_ = tbl.Set(n, []byte(n))
	}
	_ = tbl.Set("alpha", []byte("changed"))

	var names []string
	for _, r := range tbl.All() {
		names = append(names, r.Name)
	}
	if !reflect.DeepEqual(names, []string{"zeta", "alpha", "mid"}) {
		t.Errorf("All() order = %v", names)
	}
	if !reflect.DeepEqual(tbl.Names(), []string{"alpha", "mid", "zeta"}) {
		t.Errorf("Names() = %v, want sorted", tbl.Names())
	}
}

func TestReplaceDuplicates(t *testing.T) {
	tbl, err := FromRecords([]blob.Record{
		{Name: "a", Value: []byte("1")},
		{Name: "a", Value: []byte("2")},
	})
	if err != nil {
		t.Fatalf("FromRecords failed: %v", err)
	}
	val, _ := tbl.Get("a")
	if tbl.Len() != 1 || string(val) != "2" {
		t.Errorf("later duplicate should win: len=%d val=%q", tbl.Len(), val)
	}

	if _, err := FromRecords([]blob.Record{{Name: "=", Value: nil}}); err == nil {
		t.Errorf("invalid names must be rejected")
	}
}

func TestCloneAndDirty(t *testing.T) {
	tbl := New()
	_ = tbl.Set("a", []byte("1"))

	c := tbl.Clone()
	if !c.IsDirty() {
		t.Errorf("clone must keep the dirty flag")
	}
	_ = c.Set("a", []byte("2"))
	val, _ := tbl.Get("a")
	if string(val) != "1" {
		t.Errorf("clone must be independent")
	}

	tbl.ClearDirty()
	if tbl.IsDirty() {
		t.Errorf("ClearDirty had no effect")
	}
	tbl.MarkDirty()
	if !tbl.IsDirty() {
		t.Errorf("MarkDirty had no effect")
	}
}

func TestEncodeDecodeTable(t *testing.T) {
	tbl := New()
	_ = tbl.Set("ipaddr", []byte("192.168.1.10"))
	_ = tbl.Set("serverip", []byte("192.168.1.1"))

	payload, err := blob.Encode(tbl.All(), 128)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	records, err := blob.Decode(payload)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	back, _ := FromRecords(records)
	if !reflect.DeepEqual(back.All(), tbl.All()) {
		t.Errorf("decode(encode(T)) != T: %v vs %v", back.All(), tbl.All())
	}
}

package blob

import (
	"bytes"
	"github.com/ValentinKolb/envstore/lib/common"
)

// Record is a single name=value entry of the payload.
type Record struct {
	Name  string
	Value []byte
}

// String returns the record in its "name=value" text form
func (r Record) String() string {
	return r.Name + "=" + string(r.Value)
}

// --------------------------------------------------------------------------
// Validation
// --------------------------------------------------------------------------

// ValidateName checks that name is non-empty and contains neither '=' nor NUL.
func ValidateName(name string) error {
	if name == "" {
		return common.NewError(common.RetCInvalidName, "empty variable name")
	}
	for i := 0; i < len(name); i++ {
		if name[i] == '=' || name[i] == 0 {
			return common.Errorf(common.RetCInvalidName, "variable name %q contains '=' or NUL", name)
		}
	}
	return nil
}

// ValidateValue checks that value contains no NUL byte.
func ValidateValue(name string, value []byte) error {
	if bytes.IndexByte(value, 0) >= 0 {
		return common.Errorf(common.RetCInvalidName, "value of %q contains NUL", name)
	}
	return nil
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// EncodedSize returns the number of payload bytes needed for records,
// terminators included.
func EncodedSize(records []Record) int {
	size := 1 // list terminator
	for _, r := range records {
		size += len(r.Name) + 1 + len(r.Value) + 1
	}
	return size
}

// Encode packs records into a payload of exactly capacity bytes.
// Records are written in order, each followed by NUL, then the list terminator.
// The remaining capacity is zero filled.
//
// If the encoded form does not fit, a RetCEncodeTooLarge error is returned and
// no output is produced.
func Encode(records []Record, capacity int) ([]byte, error) {
	for _, r := range records {
		if err := ValidateName(r.Name); err != nil {
			return nil, common.WrapError(common.RetCMalformed, err, "cannot encode record")
		}
		if err := ValidateValue(r.Name, r.Value); err != nil {
			return nil, common.WrapError(common.RetCMalformed, err, "cannot encode record")
		}
	}

	size := EncodedSize(records)
	if size > capacity {
		return nil, common.Errorf(common.RetCEncodeTooLarge, "environment needs %d bytes, capacity is %d", size, capacity)
	}

	payload := make([]byte, capacity)
	pos := 0
	for _, r := range records {
		pos += copy(payload[pos:], r.Name)
		payload[pos] = '='
		pos++
		pos += copy(payload[pos:], r.Value)
		payload[pos] = 0
		pos++
	}
	// payload[pos] is the terminator, already zero

	return payload, nil
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// Decode parses a payload into records.
//
// Scanning stops at the first empty record. A record without '=' or with an
// empty name is malformed. Reaching the end of payload before the terminator is
// reported as truncated. Values are copied, the returned records do not
// reference payload.
func Decode(payload []byte) ([]Record, error) {
	var records []Record
	pos := 0

	for {
		if pos >= len(payload) {
			return nil, common.Errorf(common.RetCTruncated, "no terminator within %d payload bytes", len(payload))
		}

		end := bytes.IndexByte(payload[pos:], 0)
		if end < 0 {
			return nil, common.Errorf(common.RetCTruncated, "record at offset %d is not NUL terminated", pos)
		}
		if end == 0 {
			// empty record marks end of list
			return records, nil
		}

		rec := payload[pos : pos+end]
		sep := bytes.IndexByte(rec, '=')
		if sep < 0 {
			return nil, common.Errorf(common.RetCMalformed, "record at offset %d has no '='", pos)
		}
		if sep == 0 {
			return nil, common.Errorf(common.RetCMalformed, "record at offset %d has an empty name", pos)
		}

		value := make([]byte, len(rec)-sep-1)
		copy(value, rec[sep+1:])
		records = append(records, Record{
			Name:  string(rec[:sep]),
			Value: value,
		})

		pos += end + 1
	}
}

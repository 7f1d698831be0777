package env

import (
	"bytes"
	"encoding/binary"
	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/ValentinKolb/envstore/lib/env/blob"
	"github.com/ValentinKolb/envstore/lib/env/table"
	"sort"
	"strings"
)

// Format selects the exchange format of Export and Import.
type Format int

const (
	// FormatText is one "name=value" line per variable. Newlines and
	// backslashes are escaped with a backslash, as is a leading '#' of a name.
	FormatText Format = iota
	// FormatBinary is NUL separated records with an extra NUL at the end.
	FormatBinary
	// FormatChecksum is a CRC-32 followed by a payload of the environment
	// capacity, like a non-redundant copy.
	FormatChecksum
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatBinary:
		return "binary"
	case FormatChecksum:
		return "checksum"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Export
// --------------------------------------------------------------------------

// Export serializes the variables sorted by name. If names are given only
// those variables are exported; unknown names are skipped.
func (e *Environment) Export(format Format, names ...string) ([]byte, error) {
	if err := e.requireLoaded(); err != nil {
		return nil, err
	}

	records := e.selectRecords(names)
	switch format {
	case FormatText:
		var buf bytes.Buffer
		for _, r := range records {
			if strings.HasPrefix(r.Name, "#") {
				// keep the line from reading as a comment
				buf.WriteByte('\\')
			}
			buf.Write(escapeText([]byte(r.Name)))
			buf.WriteByte('=')
			buf.Write(escapeText(r.Value))
			buf.WriteByte('\n')
		}
		return buf.Bytes(), nil

	case FormatBinary:
		return blob.Encode(records, blob.EncodedSize(records))

	case FormatChecksum:
		layout := blob.Layout{Size: e.conf.Size}
		payload, err := blob.Encode(records, layout.Capacity())
		if err != nil {
			return nil, err
		}
		return layout.Pack(payload, blob.FlagActive)

	default:
		return nil, common.Errorf(common.RetCUnsupportedOperation, "unknown export format %d", int(format))
	}
}

func (e *Environment) selectRecords(names []string) []blob.Record {
	all := e.table.All()
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	if len(names) == 0 {
		return all
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []blob.Record
	for _, r := range all {
		if wanted[r.Name] {
			out = append(out, r)
		}
	}
	return out
}

func escapeText(value []byte) []byte {
	if bytes.IndexByte(value, '\n') < 0 && bytes.IndexByte(value, '\\') < 0 {
		return value
	}
	out := make([]byte, 0, len(value)+4)
	for _, c := range value {
		if c == '\n' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return out
}

// --------------------------------------------------------------------------
// Import
// --------------------------------------------------------------------------

// ImportOptions controls Import.
type ImportOptions struct {
	Format Format
	// Clear deletes the current variables first. Together with Names only the
	// listed variables missing from the input are deleted.
	Clear bool
	// CRLF treats "\r\n" like "\n" in text input.
	CRLF bool
	// Names restricts the import to these variables.
	Names []string
}

// Import merges variables from data into the table. Records with an empty
// value delete the variable. The table is only changed if the whole input is
// valid.
func (e *Environment) Import(data []byte, opts ImportOptions) error {
	if err := e.requireLoaded(); err != nil {
		return err
	}

	records, err := parseImport(data, opts)
	if err != nil {
		return err
	}

	var wanted map[string]bool
	if len(opts.Names) > 0 {
		wanted = make(map[string]bool, len(opts.Names))
		for _, n := range opts.Names {
			wanted[n] = true
		}
	}

	var next *table.Table
	if opts.Clear && wanted == nil {
		next = table.New()
		next.MarkDirty()
	} else {
		next = e.table.Clone()
	}

	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if wanted != nil && !wanted[r.Name] {
			continue
		}
		seen[r.Name] = true
		if len(r.Value) == 0 {
			if err := blob.ValidateName(r.Name); err != nil {
				return err
			}
			next.Unset(r.Name)
			continue
		}
		if err := next.Set(r.Name, r.Value); err != nil {
			return err
		}
	}

	if opts.Clear && wanted != nil {
		for _, n := range opts.Names {
			if !seen[n] && next.Has(n) {
				Logger.Warningf("%s not in imported environment, deleting it", n)
				next.Unset(n)
			}
		}
	}

	e.table = next
	Logger.Debugf("imported %d records (%s)", len(records), opts.Format)
	return nil
}

func parseImport(data []byte, opts ImportOptions) ([]blob.Record, error) {
	switch opts.Format {
	case FormatText:
		return parseText(data, opts.CRLF)

	case FormatBinary:
		// tolerate a missing list terminator at the end of a file
		trimmed := bytes.TrimRight(data, "\x00")
		if len(trimmed) == 0 {
			return nil, nil
		}
		return blob.Decode(append(bytes.Clone(trimmed), 0, 0))

	case FormatChecksum:
		if len(data) <= blob.ChecksumSize {
			return nil, common.Errorf(common.RetCTruncated, "checksummed input of %d bytes has no payload", len(data))
		}
		stored := binary.LittleEndian.Uint32(data[:blob.ChecksumSize])
		payload := data[blob.ChecksumSize:]
		if !blob.Verify(stored, payload) {
			return nil, common.Errorf(common.RetCChecksumMismatch, "bad CRC, stored 0x%08x, computed 0x%08x", stored, blob.Checksum(payload))
		}
		return blob.Decode(payload)

	default:
		return nil, common.Errorf(common.RetCUnsupportedOperation, "unknown import format %d", int(opts.Format))
	}
}

// parseText reads "name=value" lines. Empty lines and lines starting with '#'
// are skipped, a backslash escapes the next byte (so values can span lines).
func parseText(data []byte, crlf bool) ([]blob.Record, error) {
	var records []blob.Record
	var line []byte
	escaped := false
	literal := false // the first byte of line was escaped

	flush := func() error {
		if crlf && len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		defer func() {
			line = line[:0]
			literal = false
		}()

		if len(line) == 0 || (line[0] == '#' && !literal) {
			return nil
		}
		i := bytes.IndexByte(line, '=')
		if i < 0 {
			return common.Errorf(common.RetCMalformed, "line %q has no '='", line)
		}
		if i == 0 {
			return common.Errorf(common.RetCMalformed, "line %q has an empty name", line)
		}
		records = append(records, blob.Record{
			Name:  string(line[:i]),
			Value: append([]byte(nil), line[i+1:]...),
		})
		return nil
	}

	for _, c := range data {
		switch {
		case escaped:
			if len(line) == 0 {
				literal = true
			}
			line = append(line, c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == '\n':
			if err := flush(); err != nil {
				return nil, err
			}
		case c == 0:
			// NUL ends text input
			err := flush()
			return records, err
		default:
			line = append(line, c)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return records, nil
}

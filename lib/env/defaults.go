package env

import (
	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/ValentinKolb/envstore/lib/env/blob"
	"strings"
)

// builtinDefaults is the compiled-in default environment. It is used whenever
// no location holds a valid copy and by "default -a".
var builtinDefaults = []blob.Record{
	{Name: "bootdelay", Value: []byte("2")},
	{Name: "baudrate", Value: []byte("115200")},
	{Name: "bootcmd", Value: []byte("run distro_bootcmd")},
	{Name: "bootargs", Value: []byte("console=ttyS0,115200")},
	{Name: "ipaddr", Value: []byte("192.168.0.2")},
	{Name: "serverip", Value: []byte("192.168.0.1")},
	{Name: "netmask", Value: []byte("255.255.255.0")},
	{Name: "boot_targets", Value: []byte("mmc0 usb0 pxe dhcp")},
	{Name: "stdin", Value: []byte("serial")},
	{Name: "stdout", Value: []byte("serial")},
	{Name: "stderr", Value: []byte("serial")},
}

// BuiltinDefaults returns a copy of the compiled-in default environment.
func BuiltinDefaults() []blob.Record {
	out := make([]blob.Record, len(builtinDefaults))
	for i, r := range builtinDefaults {
		out[i] = blob.Record{Name: r.Name, Value: append([]byte(nil), r.Value...)}
	}
	return out
}

// DefaultRecords merges "name=value" entries into the builtin defaults.
// An entry overrides a builtin of the same name, unknown names are appended
// in the given order.
func DefaultRecords(entries []string) ([]blob.Record, error) {
	records := BuiltinDefaults()
	index := make(map[string]int, len(records))
	for i, r := range records {
		index[r.Name] = i
	}

	for _, entry := range entries {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, common.Errorf(common.RetCInvalidName, "default entry %q is not of the form name=value", entry)
		}
		if err := blob.ValidateName(name); err != nil {
			return nil, err
		}
		if err := blob.ValidateValue(name, []byte(value)); err != nil {
			return nil, err
		}

		if i, ok := index[name]; ok {
			records[i].Value = []byte(value)
			continue
		}
		index[name] = len(records)
		records = append(records, blob.Record{Name: name, Value: []byte(value)})
	}
	return records, nil
}

package env

import (
	"bytes"
	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/ValentinKolb/envstore/lib/env/blob"
	"regexp"
)

// GrepTarget selects what Grep matches against.
type GrepTarget int

const (
	GrepBoth GrepTarget = iota
	GrepName
	GrepValue
)

// GrepOptions controls Grep.
type GrepOptions struct {
	Target GrepTarget
	// Regex treats the patterns as regular expressions instead of substrings.
	Regex bool
}

// Grep returns the variables (sorted by name) where any of the patterns
// matches the name, the value or either of them.
func (e *Environment) Grep(opts GrepOptions, patterns ...string) ([]blob.Record, error) {
	if err := e.requireLoaded(); err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return nil, common.NewError(common.RetCInvalidName, "no search pattern given")
	}

	match := func(s []byte) bool {
		for _, p := range patterns {
			if bytes.Contains(s, []byte(p)) {
				return true
			}
		}
		return false
	}
	if opts.Regex {
		res := make([]*regexp.Regexp, len(patterns))
		for i, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, common.WrapError(common.RetCMalformed, err, "invalid pattern "+p)
			}
			res[i] = re
		}
		match = func(s []byte) bool {
			for _, re := range res {
				if re.Match(s) {
					return true
				}
			}
			return false
		}
	}

	var out []blob.Record
	for _, r := range e.selectRecords(nil) {
		name := opts.Target != GrepValue && match([]byte(r.Name))
		value := opts.Target != GrepName && match(r.Value)
		if name || value {
			out = append(out, r)
		}
	}
	return out, nil
}

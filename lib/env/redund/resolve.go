package redund

import (
	"fmt"
	"github.com/ValentinKolb/envstore/lib/env/backend"
	"github.com/ValentinKolb/envstore/lib/env/blob"
)

// --------------------------------------------------------------------------
// Copy state and resolution rules
// --------------------------------------------------------------------------

// CopyState is what a load learned about one copy.
type CopyState struct {
	Valid bool      // checksum verified and payload decoded
	Flag  blob.Flag // copy flag as stored (meaningless if the copy could not be read)
	Err   error     // why the copy is invalid

	records []blob.Record
}

// Rule identifies which resolution rule picked the authoritative copy.
type Rule int

const (
	RuleActiveA     Rule = iota + 1 // both valid, only A active
	RuleActiveB                     // both valid, only B active
	RuleAmbiguous                   // both valid, both or neither active: A wins
	RuleOnlyA                       // only A valid
	RuleOnlyB                       // only B valid
	RuleNoValidCopy                 // nothing valid, defaults must be used
	RuleSingleCopy                  // non-redundant layout, the copy is valid
)

func (r Rule) String() string {
	switch r {
	case RuleActiveA:
		return "active-A"
	case RuleActiveB:
		return "active-B"
	case RuleAmbiguous:
		return "ambiguous"
	case RuleOnlyA:
		return "only-A"
	case RuleOnlyB:
		return "only-B"
	case RuleNoValidCopy:
		return "no-valid-copy"
	case RuleSingleCopy:
		return "single-copy"
	default:
		return fmt.Sprintf("Rule(%d)", int(r))
	}
}

// Decision is the outcome of resolving two copies.
type Decision struct {
	Rule         Rule
	Slot         backend.Slot // the authoritative copy, only meaningful if Found
	Found        bool         // whether a valid copy exists
	Inconsistent bool         // both copies claim the same state, B's flag needs a rewrite
}

func (d Decision) String() string {
	if !d.Found {
		return d.Rule.String()
	}
	return fmt.Sprintf("%s (copy %s)", d.Rule, d.Slot)
}

// Resolve decides which of two copies is authoritative. The first matching
// rule wins:
//
//  1. both valid, A active, B not active  -> A
//  2. both valid, B active, A not active  -> B
//  3. both valid, both or neither active  -> A, inconsistent
//  4. only A valid                        -> A
//  5. only B valid                        -> B
//  6. none valid                          -> no copy
//
// Unknown flag values count as "not active". The result only depends on the
// validity and flags of the arguments.
func Resolve(a, b CopyState) Decision {
	switch {
	case a.Valid && b.Valid:
		aActive := a.Flag == blob.FlagActive
		bActive := b.Flag == blob.FlagActive
		switch {
		case aActive && !bActive:
			return Decision{Rule: RuleActiveA, Slot: backend.SlotA, Found: true}
		case bActive && !aActive:
			return Decision{Rule: RuleActiveB, Slot: backend.SlotB, Found: true}
		default:
			return Decision{Rule: RuleAmbiguous, Slot: backend.SlotA, Found: true, Inconsistent: true}
		}
	case a.Valid:
		return Decision{Rule: RuleOnlyA, Slot: backend.SlotA, Found: true}
	case b.Valid:
		return Decision{Rule: RuleOnlyB, Slot: backend.SlotB, Found: true}
	default:
		return Decision{Rule: RuleNoValidCopy}
	}
}

package redund

import (
	"fmt"
	"github.com/ValentinKolb/envstore/lib/env/backend"
	"github.com/ValentinKolb/envstore/lib/env/blob"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestResolveRules(t *testing.T) {
	valid := func(f blob.Flag) CopyState { return CopyState{Valid: true, Flag: f} }
	invalid := CopyState{}

	tests := []struct {
		name string
		a, b CopyState
		want Decision
	}{
		{"A active", valid(blob.FlagActive), valid(blob.FlagObsolete), Decision{Rule: RuleActiveA, Slot: backend.SlotA, Found: true}},
		{"A active, B unknown", valid(blob.FlagActive), valid(0xFF), Decision{Rule: RuleActiveA, Slot: backend.SlotA, Found: true}},
		{"B active", valid(blob.FlagObsolete), valid(blob.FlagActive), Decision{Rule: RuleActiveB, Slot: backend.SlotB, Found: true}},
		{"B active, A unknown", valid(0x7F), valid(blob.FlagActive), Decision{Rule: RuleActiveB, Slot: backend.SlotB, Found: true}},
		{"both active", valid(blob.FlagActive), valid(blob.FlagActive), Decision{Rule: RuleAmbiguous, Slot: backend.SlotA, Found: true, Inconsistent: true}},
		{"both obsolete", valid(blob.FlagObsolete), valid(blob.FlagObsolete), Decision{Rule: RuleAmbiguous, Slot: backend.SlotA, Found: true, Inconsistent: true}},
		{"both unknown", valid(0x02), valid(0xFF), Decision{Rule: RuleAmbiguous, Slot: backend.SlotA, Found: true, Inconsistent: true}},
		{"only A", valid(blob.FlagObsolete), invalid, Decision{Rule: RuleOnlyA, Slot: backend.SlotA, Found: true}},
		{"only B", invalid, valid(blob.FlagObsolete), Decision{Rule: RuleOnlyB, Slot: backend.SlotB, Found: true}},
		{"none", invalid, invalid, Decision{Rule: RuleNoValidCopy}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Resolve(tt.a, tt.b))
		})
	}
}

// Resolution must depend on validity and flags only, and the same inputs
// must always give the same answer.
func TestResolveIsDeterministic(t *testing.T) {
	flags := []blob.Flag{blob.FlagObsolete, blob.FlagActive, 0x02, 0xFF}
	var states []CopyState
	for _, f := range flags {
		states = append(states, CopyState{Valid: true, Flag: f}, CopyState{Valid: false, Flag: f, Err: fmt.Errorf("bad")})
	}

	for _, a := range states {
		for _, b := range states {
			first := Resolve(a, b)
			for i := 0; i < 3; i++ {
				require.Equal(t, first, Resolve(a, b))
			}

			// the error text of an invalid copy is irrelevant
			a2, b2 := a, b
			a2.Err, b2.Err = nil, nil
			require.Equal(t, first, Resolve(a2, b2))

			switch {
			case !a.Valid && !b.Valid:
				require.False(t, first.Found)
			case first.Found && first.Slot == backend.SlotA:
				require.True(t, a.Valid)
			case first.Found && first.Slot == backend.SlotB:
				require.True(t, b.Valid)
			}
		}
	}
}

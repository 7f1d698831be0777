package nowhere

import (
	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/ValentinKolb/envstore/lib/env/backend"
	"testing"
)

func TestNowhere(t *testing.T) {
	d := NewDriver(64)
	if err := d.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := d.Load(backend.SlotA, make([]byte, 64)); !common.IsCode(err, common.RetCBackendIoFailure) {
		t.Errorf("Load error = %v, want BackendIoFailure", err)
	}
	if err := d.Save(backend.SlotA, make([]byte, 64)); !common.IsCode(err, common.RetCUnsupportedOperation) {
		t.Errorf("Save error = %v, want UnsupportedOperation", err)
	}
	if err := d.Erase(backend.SlotA); err != nil {
		t.Errorf("Erase should be a no-op, got %v", err)
	}
	if d.SupportsFeature(backend.FeatureErase) {
		t.Errorf("nowhere must not advertise erase")
	}
	if d.GetInfo().Location != backend.LocationNowhere {
		t.Errorf("unexpected location %s", d.GetInfo().Location)
	}
}

package idhash

import (
	"math/big"
	"testing"
)

func TestComputeRebaseID_Deterministic(t *testing.T) {
	a := ComputeRebaseID(5, 12, big.NewInt(1000))
	b := ComputeRebaseID(5, 12, big.NewInt(1000))

	if a != b {
		t.Errorf("same inputs produced different IDs: %s vs %s", a, b)
	}
}

func TestComputeRebaseID_DiffersOnInput(t *testing.T) {
	base := ComputeRebaseID(5, 12, big.NewInt(1000))

	if ComputeRebaseID(6, 12, big.NewInt(1000)) == base {
		t.Error("epoch change did not change ID")
	}
	if ComputeRebaseID(5, 13, big.NewInt(1000)) == base {
		t.Error("sequence change did not change ID")
	}
	if ComputeRebaseID(5, 12, big.NewInt(1001)) == base {
		t.Error("profit change did not change ID")
	}
}

func TestComputeEventID_Deterministic(t *testing.T) {
	a := ComputeEventID("STAKE", "holder-1", 2, 7)
	b := ComputeEventID("STAKE", "holder-1", 2, 7)

	if a != b {
		t.Errorf("same inputs produced different IDs: %s vs %s", a, b)
	}
	if ComputeEventID("UNSTAKE", "holder-1", 2, 7) == a {
		t.Error("event type change did not change ID")
	}
}

func TestComputeBatchID_NonEmpty(t *testing.T) {
	id := ComputeBatchID(42, big.NewInt(123456789))
	if id == "" {
		t.Error("expected non-empty batch ID")
	}
}

package metrics

import "testing"

func TestCountersAreIndependentAndIncrementable(t *testing.T) {
	before := FramesRead.Value()
	FramesRead.Add(3)
	if got := FramesRead.Value(); got != before+3 {
		t.Errorf("expected FramesRead to increase by 3, got %d -> %d", before, got)
	}

	beforeDropped := FramesDropped.Value()
	NALUSPS.Add(1)
	if got := FramesDropped.Value(); got != beforeDropped {
		t.Errorf("incrementing NALUSPS must not affect FramesDropped, got %d -> %d", beforeDropped, got)
	}
}

func TestGaugeStyleCountersCanBeSet(t *testing.T) {
	VideoW.Set(1080)
	VideoH.Set(2400)
	if VideoW.Value() != 1080 || VideoH.Value() != 2400 {
		t.Errorf("expected VideoW/VideoH to hold the set values, got %d/%d", VideoW.Value(), VideoH.Value())
	}
}

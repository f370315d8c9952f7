package model

import "testing"

func TestEffectivePoints(t *testing.T) {
	n := Notification{Points: 30}
	if n.EffectivePoints() != 30 {
		t.Errorf("effective = %d, want 30", n.EffectivePoints())
	}

	override := 45
	n.ModifiedPoints = &override
	if n.EffectivePoints() != 45 {
		t.Errorf("effective = %d, want override 45", n.EffectivePoints())
	}
}

package scheme

import (
	"testing"

	"github.com/kingrea/arc-wizard/internal/genesis"
)

func TestParseType(t *testing.T) {
	for _, input := range []string{"ContributionReward", "contribution reward", " CONTRIBUTIONREWARD "} {
		got, err := ParseType(input)
		if err != nil {
			t.Fatalf("ParseType(%q): %v", input, err)
		}
		if got != ContributionReward {
			t.Fatalf("ParseType(%q) = %s", input, got)
		}
	}
	if _, err := ParseType("treasury"); err == nil {
		t.Fatalf("expected error for unknown scheme")
	}
}

func TestCloneDoesNotShareBinding(t *testing.T) {
	s, err := New(SchemeRegistrar, genesis.PresetCritical)
	if err != nil {
		t.Fatalf("new scheme: %v", err)
	}
	c := s.Clone()
	*c.Preset = genesis.PresetEasy
	if *s.Preset != genesis.PresetCritical {
		t.Fatalf("clone shares preset pointer with original")
	}
}

func TestBindUnbind(t *testing.T) {
	s, _ := New(ContributionReward, genesis.PresetNormal)
	if !s.IsBound() || s.PresetLabel() != "Normal" {
		t.Fatalf("expected bound Normal scheme, got %s", s.PresetLabel())
	}
	u := s.Unbind()
	if u.IsBound() || u.PresetLabel() != "Custom" {
		t.Fatalf("expected custom after unbind")
	}
	if !s.IsBound() {
		t.Fatalf("unbind must not modify the receiver")
	}
}

func TestValidate(t *testing.T) {
	s, _ := New(GenericScheme, genesis.PresetEasy)
	if err := s.Validate(); err != nil {
		t.Fatalf("preset scheme should validate: %v", err)
	}
	s.Params.ThresholdConst = 10
	if err := s.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
	s = Scheme{Type: Type(9)}
	if err := s.Validate(); err == nil {
		t.Fatalf("expected unknown type error")
	}
}

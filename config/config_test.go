package config

import "testing"

func TestParseCommunicateBasic(t *testing.T) {
	cfg := Default()
	err := ParseCommunicate([]string{"multi", "cutoff", "2.5", "vel", "yes", "group", "first"}, cfg)
	if err != nil {
		t.Fatalf("ParseCommunicate: %v", err)
	}
	if cfg.Style != StyleMulti {
		t.Errorf("Style = %v, want multi", cfg.Style)
	}
	if cfg.Cutoff != 2.5 {
		t.Errorf("Cutoff = %v, want 2.5", cfg.Cutoff)
	}
	if !cfg.Vel {
		t.Errorf("Vel = false, want true")
	}
	if cfg.Group != "first" {
		t.Errorf("Group = %q, want %q", cfg.Group, "first")
	}
}

func TestParseCommunicateNegativeCutoffRejected(t *testing.T) {
	cfg := Default()
	err := ParseCommunicate([]string{"cutoff", "-1"}, cfg)
	if err != ErrInvalidCutoff {
		t.Fatalf("err = %v, want ErrInvalidCutoff", err)
	}
}

func TestParseCommunicateUnknownTokenRejected(t *testing.T) {
	cfg := Default()
	err := ParseCommunicate([]string{"bogus"}, cfg)
	if err == nil {
		t.Fatal("expected error for unknown token")
	}
}

func TestParseCommunicateMissingArgRejected(t *testing.T) {
	cfg := Default()
	err := ParseCommunicate([]string{"cutoff"}, cfg)
	if err == nil {
		t.Fatal("expected error for missing cutoff argument")
	}
}

func TestValidateGroup(t *testing.T) {
	if err := ValidateGroup("", "anything"); err != nil {
		t.Errorf("empty group should always validate, got %v", err)
	}
	if err := ValidateGroup("first", "first"); err != nil {
		t.Errorf("matching group should validate, got %v", err)
	}
	if err := ValidateGroup("other", "first"); err != ErrInvalidGroup {
		t.Errorf("err = %v, want ErrInvalidGroup", err)
	}
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Style != StyleSingle {
		t.Errorf("default Style = %v, want single", cfg.Style)
	}
}

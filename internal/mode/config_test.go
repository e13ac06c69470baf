package mode

import (
	"errors"
	"testing"
)

func TestDefaultConfigsValid(t *testing.T) {
	macro := DefaultMacroConfig()
	if err := macro.Validate(); err != nil {
		t.Errorf("macro defaults invalid: %v", err)
	}
	intelligent := DefaultIntelligentConfig()
	if err := intelligent.Validate(); err != nil {
		t.Errorf("intelligent defaults invalid: %v", err)
	}
}

func TestMacroConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*MacroConfig)
		wantErr bool
	}{
		{"defaults", func(*MacroConfig) {}, false},
		{"missing hotkey", func(c *MacroConfig) {
			delete(c.Keys, "deploy_operator")
		}, true},
		{"blank hotkey", func(c *MacroConfig) {
			c.Keys["activate_skill"] = "  "
		}, true},
		{"transparency too high", func(c *MacroConfig) {
			c.Overlay.Transparency = 150
		}, true},
		{"unknown overlay mode", func(c *MacroConfig) {
			c.Overlay.DisplayMode = "sideways"
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultMacroConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error does not match ErrInvalidConfig: %v", err)
			}
		})
	}
}

func TestMacroConfig_FixInvalidValues(t *testing.T) {
	cfg := DefaultMacroConfig()
	delete(cfg.Keys, "deploy_operator")
	cfg.Keys["activate_skill"] = ""
	cfg.Overlay.Transparency = 180
	cfg.Overlay.DisplayMode = "sideways"

	cfg.FixInvalidValues()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("still invalid after repair: %v", err)
	}
	if cfg.Keys["deploy_operator"] != "1" {
		t.Errorf("deploy_operator = %q, want default", cfg.Keys["deploy_operator"])
	}
	if cfg.Keys["activate_skill"] != "2" {
		t.Errorf("activate_skill = %q, want default", cfg.Keys["activate_skill"])
	}
	if cfg.Overlay.Transparency != 100 {
		t.Errorf("transparency = %d, want clamped to 100", cfg.Overlay.Transparency)
	}
	if cfg.Overlay.DisplayMode != OverlayWhenForeground {
		t.Errorf("display mode = %q, want default", cfg.Overlay.DisplayMode)
	}
}

func TestIntelligentConfig_Features(t *testing.T) {
	cfg := DefaultIntelligentConfig()
	cfg.Features = append(cfg.Features, "mind_reading")
	if err := cfg.Validate(); err == nil {
		t.Fatal("unsupported feature passed validation")
	}

	cfg.FixInvalidValues()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("still invalid after repair: %v", err)
	}
	for _, f := range cfg.Features {
		if f == "mind_reading" {
			t.Error("unsupported feature survived repair")
		}
	}

	// An emptied feature list gets the default back.
	cfg.Features = nil
	cfg.FixInvalidValues()
	if len(cfg.Features) != 1 || cfg.Features[0] != "small_number_selection" {
		t.Errorf("features = %v, want the default feature", cfg.Features)
	}
}

func TestEnabledFeatures(t *testing.T) {
	macro := DefaultMacroConfig()
	got := macro.EnabledFeatures()
	want := []string{"battle_detection", "overlay"}
	if len(got) != len(want) {
		t.Fatalf("macro features = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("macro features = %v, want %v", got, want)
			break
		}
	}

	macro.BattleDetection = false
	macro.Overlay.Enabled = false
	if got := macro.EnabledFeatures(); len(got) != 0 {
		t.Errorf("features = %v, want none", got)
	}

	intelligent := DefaultIntelligentConfig()
	intelligent.Features = []string{"auto_skill_timing", "smart_deployment"}
	got = intelligent.EnabledFeatures()
	if len(got) != 3 || got[2] != "overlay" {
		t.Errorf("intelligent features = %v", got)
	}
}

func TestValidationError_Fields(t *testing.T) {
	cfg := DefaultMacroConfig()
	delete(cfg.Keys, "pause_game")

	err := cfg.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T", err)
	}
	if verr.Section != "macro" || verr.Field != "pause_game" {
		t.Errorf("error = %+v", verr)
	}
}

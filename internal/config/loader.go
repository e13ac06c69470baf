package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/autark/internal/mode"
)

// EnvPrefix scopes the recognized environment overrides.
const EnvPrefix = "AUTARK_"

// Load reads the configuration from path, starting from defaults so a
// partial file only overrides what it mentions. A missing file is not
// an error. Environment overrides apply on top, then the result is
// validated; on a validation failure the repaired-but-unvalidated
// config is returned alongside the error so callers can choose between
// rejecting and calling FixInvalidValues.
func Load(path string) (*AppConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration atomically: temp file in the target
// directory, then rename.
func Save(path string, cfg *AppConfig) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// applyEnv overlays recognized AUTARK_ environment variables.
func applyEnv(cfg *AppConfig) {
	if v, ok := lookup("MODE"); ok {
		cfg.Mode = modeFromString(v, cfg.Mode)
	}
	if v, ok := lookup("TARGET_TITLE"); ok {
		cfg.Detection.TargetTitle = v
	}
	if v, ok := lookup("TARGET_PROCESS"); ok {
		cfg.Detection.TargetProcess = v
	}
	if v, ok := lookupInt("DETECT_INTERVAL_MS"); ok {
		cfg.Detection.IntervalMS = v
	}
	if v, ok := lookupBool("AUTO_START"); ok {
		cfg.Global.AutoStartOnDetection = v
	}
	if v, ok := lookup("STATE_PATH"); ok {
		cfg.State.Path = v
	}
	if v, ok := lookupInt("AUTOSAVE_SECONDS"); ok {
		cfg.State.AutoSaveSeconds = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.Logging.Level = v
	}
}

func modeFromString(v string, fallback mode.OperationMode) mode.OperationMode {
	m := mode.OperationMode(strings.ToLower(strings.TrimSpace(v)))
	if m.Valid() {
		return m
	}
	return fallback
}

func lookup(name string) (string, bool) {
	return os.LookupEnv(EnvPrefix + name)
}

func lookupInt(name string) (int, bool) {
	v, ok := lookup(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

func lookupBool(name string) (bool, bool) {
	v, ok := lookup(name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, false
	}
	return b, true
}

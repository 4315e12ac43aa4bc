package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"sigs.k8s.io/yaml"

	"wormsign/internal/model"
)

// Config is the user configuration. JSON and YAML files share the same
// field names.
type Config struct {
	Offline           bool     `json:"offline"`
	AllowedSources    []string `json:"allowedSources"`
	SeverityThreshold string   `json:"severityThreshold"`
	SuppressedRules   []string `json:"suppressedRules"`
}

// Files searched in each directory, in order. package.json's "wormsign"
// key is consulted after them.
var Files = []string{
	".wormsignrc",
	".wormsignrc.json",
	".wormsignrc.yaml",
	".wormsignrc.yml",
	"wormsign.config.json",
	"wormsign.config.yaml",
}

const packageJSONKey = "wormsign"

// Environment overrides, applied after the file is loaded.
const (
	EnvOffline           = "WORMSIGN_OFFLINE"
	EnvSuppressedRules   = "WORMSIGN_SUPPRESSED_RULES"
	EnvSeverityThreshold = "WORMSIGN_SEVERITY_THRESHOLD"
)

func Default() Config {
	return Config{
		AllowedSources:    []string{},
		SeverityThreshold: string(model.SeverityLow),
		SuppressedRules:   []string{},
	}
}

// Threshold parses SeverityThreshold, treating anything unparseable as
// no threshold.
func (c Config) Threshold() model.Severity {
	sev, err := model.ParseSeverity(c.SeverityThreshold)
	if err != nil {
		return model.SeverityUnknown
	}
	return sev
}

// SourceAllowed reports whether a named feed source (or custom URL host)
// may be used. An empty allow list permits everything.
func (c Config) SourceAllowed(name string) bool {
	if len(c.AllowedSources) == 0 {
		return true
	}
	for _, s := range c.AllowedSources {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return true
		}
	}
	return false
}

// Load searches from dir upward for a configuration file and returns it
// merged over the defaults, along with the path it came from ("" when
// nothing was found). On error the defaults are returned with it.
func Load(dir string) (Config, string, error) {
	cfg := Default()

	abs, err := filepath.Abs(dir)
	if err != nil {
		return cfg, "", err
	}

	for d := abs; ; {
		for _, name := range Files {
			path := filepath.Join(d, name)
			data, err := os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return Default(), path, err
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Default(), path, fmt.Errorf("parse %s: %w", path, err)
			}
			return cfg, path, nil
		}

		pkgPath := filepath.Join(d, "package.json")
		if found, err := fromPackageJSON(pkgPath, &cfg); err != nil {
			return Default(), pkgPath, err
		} else if found {
			return cfg, pkgPath, nil
		}

		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	return cfg, "", nil
}

func fromPackageJSON(path string, cfg *Config) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var pkg map[string]json.RawMessage
	if err := json.Unmarshal(data, &pkg); err != nil {
		// a broken package.json is reported by the scan itself
		return false, nil
	}
	raw, ok := pkg[packageJSONKey]
	if !ok {
		return false, nil
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return false, fmt.Errorf("parse %s %q key: %w", path, packageJSONKey, err)
	}
	return true, nil
}

// ApplyEnvOverrides lets the environment override file values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvOffline); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Offline = b
		}
	}
	if v := os.Getenv(EnvSuppressedRules); v != "" {
		c.SuppressedRules = splitList(v)
	}
	if v := os.Getenv(EnvSeverityThreshold); v != "" {
		c.SeverityThreshold = strings.TrimSpace(v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

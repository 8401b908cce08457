package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL  = "https://girder.sivacor.org/api/v1"
	DefaultProfile = "default"
)

// Profile is one named set of connection settings in the config file.
type Profile struct {
	APIURL   string `yaml:"apiUrl,omitempty"`
	APIKey   string `yaml:"apiKey,omitempty"`
	Timezone string `yaml:"timezone,omitempty"`
}

// File is the on-disk layout of ~/.sivacor/config.yaml.
type File struct {
	CurrentProfile string             `yaml:"currentProfile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Config is the resolved configuration for one CLI invocation.
type Config struct {
	Profile   string
	APIURL    string
	APIKey    string
	Timezone  string
	LogLevel  string
	LogFormat string

	TracingEnabled bool
	OTLPEndpoint   string
	OTLPInsecure   bool
}

// Dir is the directory holding the config file. SIVACOR_CONFIG_DIR
// overrides the default of ~/.sivacor.
func Dir() string {
	if v := strings.TrimSpace(os.Getenv("SIVACOR_CONFIG_DIR")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".sivacor")
}

func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// LoadFile reads the profile file. A missing file yields an empty one.
func LoadFile(path string) (File, error) {
	f := File{Profiles: map[string]Profile{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return f, err
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse %s: %w", path, err)
	}
	if f.Profiles == nil {
		f.Profiles = map[string]Profile{}
	}
	return f, nil
}

func SaveFile(f File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ResolveProfileName picks the active profile: explicit flag, then
// SIVACOR_PROFILE, then the file's current profile, then "default".
func ResolveProfileName(flag string, f File) string {
	if v := strings.TrimSpace(flag); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("SIVACOR_PROFILE")); v != "" {
		return v
	}
	if f.CurrentProfile != "" {
		return f.CurrentProfile
	}
	return DefaultProfile
}

// Load resolves the configuration from the profile file at path and the
// environment. Environment variables win over the file.
func Load(path, profileName string) (*Config, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return FromFile(f, profileName), nil
}

// FromFile resolves the configuration from an already loaded file.
func FromFile(f File, profileName string) *Config {
	active := ResolveProfileName(profileName, f)
	prof := f.Profiles[active]

	c := &Config{
		Profile:  active,
		APIURL:   prof.APIURL,
		APIKey:   prof.APIKey,
		Timezone: prof.Timezone,
	}
	if v := strings.TrimSpace(os.Getenv("GIRDER_API_URL")); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("GIRDER_API_KEY")); v != "" {
		c.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("SIVACOR_TIMEZONE")); v != "" {
		c.Timezone = v
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("SIVACOR_LOG_LEVEL")))
	c.LogFormat = strings.ToLower(strings.TrimSpace(os.Getenv("SIVACOR_LOG_FORMAT")))
	c.OTLPEndpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	c.OTLPInsecure = parseBool(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"))
	if v := strings.TrimSpace(os.Getenv("SIVACOR_TRACING")); v != "" {
		c.TracingEnabled = parseBool(v)
	} else {
		c.TracingEnabled = c.OTLPEndpoint != ""
	}

	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	return c
}

func (c *Config) Validate() error {
	var errs []string
	if strings.TrimSpace(c.APIKey) == "" {
		errs = append(errs, "GIRDER_API_KEY is not set (export it or run `sivacor init`)")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, "api url must be a valid http(s) URL")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("unknown log format %q", c.LogFormat))
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("unknown timezone %q", c.Timezone))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Location is the zone timestamps are shown in. It defaults to the
// operator's local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// MaskToken hides all but the edges of a secret.
func MaskToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "<unset>"
	}
	if len(v) <= 8 {
		return "****"
	}
	return v[:4] + "..." + v[len(v)-4:]
}

func parseBool(v string) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	return v == "true" || v == "1" || v == "yes" || v == "y" || v == "on"
}

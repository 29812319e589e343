package relay

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all relay configuration. It is loaded once before the
// components are constructed and treated as read-only for the run.
type Config struct {
	// URL is the full page URL carrying the form, including any query string.
	URL string `json:"url" yaml:"url"`

	// Selector identifies the target form. Empty means the first form on the
	// page.
	Selector string `json:"selector" yaml:"selector"`

	// FallbackAction is used when the matched form declares no action
	// attribute. Without it such a form is a fatal extraction error.
	FallbackAction string `json:"fallback_action" yaml:"fallback_action"`

	// Overrides are caller-supplied field values. They dominate extracted
	// values on key collision; unknown keys are submitted as new fields.
	Overrides map[string]string `json:"overrides" yaml:"overrides"`

	// Headers are static headers applied to every request.
	Headers map[string]string `json:"headers" yaml:"headers"`

	// HeaderSets is an optional pool of header sets; one is chosen per
	// session, avoiding recently used sets.
	HeaderSets []map[string]string `json:"header_sets" yaml:"header_sets"`

	// PostHeaders apply to the submission POST only.
	PostHeaders map[string]string `json:"post_headers" yaml:"post_headers"`

	// Timeout bounds each request. Zero uses the transport default (30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// RequestsPerSecond paces requests. Zero means unlimited.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst"`

	// SkipTLSVerify disables certificate verification.
	SkipTLSVerify bool `json:"skip_tls_verify" yaml:"skip_tls_verify"`

	// AllowNoResponse downgrades a transport failure during the POST to a
	// warning plus a NoResponse result.
	AllowNoResponse bool `json:"allow_no_response" yaml:"allow_no_response"`

	// TestMode extracts and merges but skips the POST.
	TestMode bool `json:"test_mode" yaml:"test_mode"`

	// Verbose logging
	Verbose bool `json:"verbose" yaml:"verbose"`

	// Debug mode
	Debug bool `json:"debug" yaml:"debug"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return config, nil
}

// SaveToFile saves configuration to a file.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("page URL is required")
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid page URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("page URL must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("page URL has no host")
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}

	return nil
}

// splitURL breaks the full page URL into base URL, request path, and query
// parameters, the three pieces the transport and extractor consume.
func splitURL(raw string) (base, path string, params url.Values, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", nil, err
	}
	base = u.Scheme + "://" + u.Host
	path = u.Path
	if path == "" {
		path = "/"
	}
	params = u.Query()
	return base, path, params, nil
}

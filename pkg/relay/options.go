package relay

import (
	"fmt"

	"github.com/PentesterFlow/FormRelay/internal/logger"
)

// Option configures a Relay.
type Option func(*Relay) error

// WithConfig sets the full configuration.
func WithConfig(cfg *Config) Option {
	return func(r *Relay) error {
		if cfg == nil {
			return fmt.Errorf("config must not be nil")
		}
		r.cfg = cfg
		return nil
	}
}

// WithConfigFile loads configuration from a YAML or JSON file.
func WithConfigFile(path string) Option {
	return func(r *Relay) error {
		cfg, err := LoadFromFile(path)
		if err != nil {
			return err
		}
		r.cfg = cfg
		return nil
	}
}

// WithLogger injects the logging sink used by all components.
func WithLogger(sink logger.Sink) Option {
	return func(r *Relay) error {
		if sink == nil {
			return fmt.Errorf("logger must not be nil")
		}
		r.sink = sink
		return nil
	}
}

// WithURL sets the page URL.
func WithURL(url string) Option {
	return func(r *Relay) error {
		r.cfg.URL = url
		return nil
	}
}

// WithSelector sets the form selector.
func WithSelector(selector string) Option {
	return func(r *Relay) error {
		r.cfg.Selector = selector
		return nil
	}
}

// WithOverrides merges caller overrides into the configuration.
func WithOverrides(overrides map[string]string) Option {
	return func(r *Relay) error {
		if r.cfg.Overrides == nil {
			r.cfg.Overrides = make(map[string]string, len(overrides))
		}
		for k, v := range overrides {
			r.cfg.Overrides[k] = v
		}
		return nil
	}
}

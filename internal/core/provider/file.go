package provider

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the on-disk catalog format:
//
//	default_interval: 300ms
//	providers:
//	  fastmail:
//	    interval: 250ms
//	    domains: [fastmail.com, fastmail.fm]
type File struct {
	DefaultInterval string                  `yaml:"default_interval"`
	Providers       map[string]FileProvider `yaml:"providers"`
}

// FileProvider is one provider block of a catalog file.
type FileProvider struct {
	Interval string   `yaml:"interval"`
	Domains  []string `yaml:"domains"`
}

// LoadFile reads a YAML catalog file and converts it to overrides.
func LoadFile(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, fmt.Errorf("read catalog file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes catalog YAML into overrides.
func ParseFile(data []byte) (Overrides, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Overrides{}, fmt.Errorf("decode catalog file: %w", err)
	}

	overrides := Overrides{
		Domains:   map[string]string{},
		Intervals: map[string]time.Duration{},
	}

	if value := strings.TrimSpace(file.DefaultInterval); value != "" {
		interval, err := time.ParseDuration(value)
		if err != nil {
			return Overrides{}, fmt.Errorf("invalid default_interval %q: %w", value, err)
		}
		overrides.DefaultInterval = interval
	}

	for name, block := range file.Providers {
		if value := strings.TrimSpace(block.Interval); value != "" {
			interval, err := time.ParseDuration(value)
			if err != nil {
				return Overrides{}, fmt.Errorf("invalid interval for provider %s: %w", name, err)
			}
			overrides.Intervals[name] = interval
		}
		for _, domain := range block.Domains {
			overrides.Domains[domain] = name
		}
	}

	return overrides, nil
}

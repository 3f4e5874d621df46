// Package config loads backend profiles from YAML and turns them into
// restpipe settings. Profile values may reference environment variables
// with ${VAR} or ${VAR:default} placeholders, so API keys stay out of
// the file itself.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/martinemde/conduit/restpipe"
)

var validate = validator.New()

// File is the root of a conduit configuration file.
type File struct {
	// Default names the backend used when the caller does not pick one.
	Default string `yaml:"default"`

	Backends map[string]Backend `yaml:"backends" validate:"required,min=1,dive"`
}

// Backend describes one provider integration.
type Backend struct {
	BaseURL     string `yaml:"base_url" validate:"required,url"`
	Version     string `yaml:"version"`
	BetaVersion string `yaml:"beta_version"`

	Auth AuthConfig `yaml:"auth"`

	VersionPlacement string `yaml:"version_placement" validate:"omitempty,oneof=header path query"`
	BetaPlacement    string `yaml:"beta_placement" validate:"omitempty,oneof=header path query"`

	BetaHeaders map[string]string `yaml:"beta_headers"`
	Headers     map[string]string `yaml:"headers"`

	CursorParam string        `yaml:"cursor_param"`
	Timeout     time.Duration `yaml:"timeout"`

	MaxAttempts int           `yaml:"max_attempts" validate:"omitempty,min=1"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// AuthConfig controls API key placement for a backend.
type AuthConfig struct {
	Placement string `yaml:"placement" validate:"omitempty,oneof=header path query"`
	Header    string `yaml:"header"`
	Format    string `yaml:"format"`
	QueryKey  string `yaml:"query_key"`
	Key       string `yaml:"key"`
}

// Backend returns the named backend, or the default one when name is
// empty.
func (f *File) Backend(name string) (Backend, string, error) {
	if name == "" {
		name = f.Default
	}
	if name == "" && len(f.Backends) == 1 {
		for only := range f.Backends {
			name = only
		}
	}
	backend, ok := f.Backends[name]
	if !ok {
		return Backend{}, "", fmt.Errorf("backend %q is not configured", name)
	}
	return backend, name, nil
}

// Settings converts a backend profile into pipeline settings.
func (b Backend) Settings(name string) restpipe.Settings {
	s := restpipe.Settings{
		Name:             name,
		BaseURL:          b.BaseURL,
		Version:          b.Version,
		BetaVersion:      b.BetaVersion,
		Timeout:          b.Timeout,
		KeyPlacement:     restpipe.Placement(b.Auth.Placement),
		VersionPlacement: restpipe.Placement(b.VersionPlacement),
		BetaPlacement:    restpipe.Placement(b.BetaPlacement),
		KeyHeader:        b.Auth.Header,
		KeyFormat:        b.Auth.Format,
		KeyQueryName:     b.Auth.QueryKey,
		BetaHeaders:      b.BetaHeaders,
		ExtraHeaders:     b.Headers,
		CursorParam:      b.CursorParam,
	}
	if b.Auth.Key != "" {
		s.APIKey = restpipe.StaticKey(b.Auth.Key)
	}
	retry := restpipe.DefaultRetryPolicy()
	if b.MaxAttempts > 0 {
		retry.MaxAttempts = b.MaxAttempts
	}
	if b.RetryDelay > 0 {
		retry.BaseDelay = b.RetryDelay
	}
	s.Retry = retry
	return s
}

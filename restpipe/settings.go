package restpipe

import "time"

// Placement selects where an auto-injected parameter is carried.
type Placement string

const (
	PlacementUnset  Placement = ""
	PlacementHeader Placement = "header"
	PlacementPath   Placement = "path"
	PlacementQuery  Placement = "query"
)

// KeyGetter produces the current API secret for a backend, or fails.
// It is invoked once per call by the auto-parameter injector, before
// any network I/O.
type KeyGetter func() (string, error)

// StaticKey returns a KeyGetter that always yields the given secret.
func StaticKey(key string) KeyGetter {
	return func() (string, error) { return key, nil }
}

// Settings describes one backend integration. It is constructed once
// per backend and shared read-only by every request against it.
type Settings struct {
	// Name identifies the backend in logs and provider errors.
	Name string

	// BaseURL is the scheme://host[:port] prefix of every endpoint.
	BaseURL string

	// Version is the stable API version token substituted for {ver}
	// when VersionPlacement is PlacementPath.
	Version string

	// BetaVersion, when set, supersedes Version in the same template
	// slot (see the injector ordering).
	BetaVersion string

	// Timeout bounds the full retry sequence of one call. Zero means
	// no per-call deadline beyond the caller's context.
	Timeout time.Duration

	KeyPlacement     Placement
	VersionPlacement Placement
	BetaPlacement    Placement

	// APIKey is the capability producing the current secret.
	APIKey KeyGetter

	// KeyHeader and KeyFormat control header placement of the API key,
	// e.g. KeyHeader "Authorization" with KeyFormat "Bearer {0}".
	KeyHeader string
	KeyFormat string

	// KeyQueryName is the query parameter name used when KeyPlacement
	// is PlacementQuery.
	KeyQueryName string

	// BetaHeaders are the client-wide beta headers attached when
	// BetaPlacement is PlacementHeader and the service declares none.
	BetaHeaders map[string]string

	// ExtraHeaders are static headers appended to every call, last.
	ExtraHeaders map[string]string

	// CursorParam is the query key used by ListAll to advance pages.
	CursorParam string

	// Retry is the default retry policy; individual requests may
	// override attempts and base delay.
	Retry RetryPolicy
}

// withDefaults fills zero-valued fields with usable defaults.
func (s Settings) withDefaults() Settings {
	if s.KeyHeader == "" {
		s.KeyHeader = "Authorization"
	}
	if s.KeyFormat == "" {
		s.KeyFormat = "Bearer {0}"
	}
	if s.CursorParam == "" {
		s.CursorParam = "after"
	}
	if s.Retry.MaxAttempts == 0 {
		s.Retry = DefaultRetryPolicy()
	}
	return s
}

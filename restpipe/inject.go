package restpipe

import (
	"fmt"
	"strings"
)

// injectAutoParams applies the client-level auto-parameter policy to a
// request, in fixed order: API key, beta version, stable version, then
// static extra headers. Beta and stable versions share the {ver}
// template slot, so path placement of the beta version suppresses path
// placement of the stable one. Any failure here prevents transport
// invocation.
func injectAutoParams(svc *Service, req *Request, params []Param) ([]Param, error) {
	settings := svc.client.settings

	// 1. API key.
	switch settings.KeyPlacement {
	case PlacementHeader, PlacementQuery:
		if settings.APIKey == nil {
			return nil, &NoAPIKeyError{PipelineError: PipelineError{
				Message: fmt.Sprintf("backend %s has no API key getter", settings.Name),
			}}
		}
		key, err := settings.APIKey()
		if err != nil || key == "" {
			return nil, &NoAPIKeyError{PipelineError: PipelineError{
				Message: fmt.Sprintf("backend %s produced no API key", settings.Name),
				Cause:   err,
			}}
		}
		if settings.KeyPlacement == PlacementHeader {
			req.Headers.Set(settings.KeyHeader, strings.ReplaceAll(settings.KeyFormat, "{0}", key))
		} else {
			if settings.KeyQueryName == "" {
				return nil, &NoAPIKeyQueryKeyError{PipelineError: PipelineError{
					Message: fmt.Sprintf("backend %s places its key in the query but configures no query key name", settings.Name),
				}}
			}
			params = append(params, Query(settings.KeyQueryName, key))
		}
	}

	// 2. Beta version. Path placement claims the {ver} slot.
	betaResolved := false
	switch settings.BetaPlacement {
	case PlacementHeader:
		headers := svc.resolveBetaHeaders()
		if len(headers) == 0 {
			return nil, &NoBetaHeaderError{PipelineError: PipelineError{
				Message: fmt.Sprintf("backend %s places beta in headers but declares none", settings.Name),
			}}
		}
		for k, v := range headers {
			req.Headers.Set(k, v)
		}
	case PlacementPath:
		if settings.BetaVersion == "" {
			return nil, &NoBetaVersionError{PipelineError: PipelineError{
				Message: fmt.Sprintf("backend %s places beta in the path but has no beta version", settings.Name),
			}}
		}
		params = append(params, Version(settings.BetaVersion))
		betaResolved = true
	default:
		// A service may opt into beta features explicitly even when the
		// backend declares no beta placement. Only headers declared on
		// the service chain apply here; the client-wide BetaHeaders
		// require PlacementHeader.
		for k, v := range svc.serviceBetaHeaders() {
			req.Headers.Set(k, v)
		}
	}

	// 3. Stable version, only when beta did not claim the slot.
	if !betaResolved && settings.VersionPlacement == PlacementPath {
		if settings.Version == "" {
			return nil, &NoVersionError{PipelineError: PipelineError{
				Message: fmt.Sprintf("backend %s places its version in the path but has none", settings.Name),
			}}
		}
		params = append(params, Version(settings.Version))
	}

	// 4. Static headers, always last.
	for k, v := range settings.ExtraHeaders {
		req.Headers.Set(k, v)
	}

	return params, nil
}

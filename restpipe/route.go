package restpipe

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var positionalToken = regexp.MustCompile(`\{(\d+)\}`)

// buildRoute expands an endpoint template into a concrete URL. It is a
// pure function of its inputs. {ver} is filled from the single Version
// param (the injector guarantees at most one), {0}, {1}, ... from the
// flattened ID param values indexed by token number, {method} (or an
// appended ":name" suffix) from a Method param, Child params append
// path segments, and Query params accumulate onto the query string in
// the order given.
func buildRoute(baseURL, template string, params []Param, logger *slog.Logger) (string, error) {
	if template == "" {
		return "", &InvalidEndpointError{PipelineError: PipelineError{Message: "empty endpoint template"}}
	}

	var ids []string
	var version, method string
	var children []string
	var queries []Param
	for _, p := range params {
		switch p.Kind {
		case ParamID:
			ids = append(ids, p.IDs...)
		case ParamVersion:
			version = p.Value
		case ParamMethod:
			method = p.Value
		case ParamChild:
			children = append(children, strings.Trim(p.Value, "/"))
		case ParamQuery:
			queries = append(queries, p)
		}
	}

	path := template
	if strings.Contains(path, "{ver}") {
		if version == "" {
			return "", &InvalidEndpointError{PipelineError: PipelineError{
				Message: fmt.Sprintf("endpoint %q requires a version param", template),
			}}
		}
		path = strings.ReplaceAll(path, "{ver}", version)
	}

	used := 0
	var tokenErr error
	path = positionalToken.ReplaceAllStringFunc(path, func(token string) string {
		if tokenErr != nil {
			return token
		}
		idx, err := strconv.Atoi(token[1 : len(token)-1])
		if err != nil || idx >= len(ids) {
			tokenErr = &InvalidEndpointError{PipelineError: PipelineError{
				Message: fmt.Sprintf("endpoint %q has no id param for token %s", template, token),
			}}
			return token
		}
		if idx+1 > used {
			used = idx + 1
		}
		return url.PathEscape(ids[idx])
	})
	if tokenErr != nil {
		return "", tokenErr
	}
	if used < len(ids) && logger != nil {
		// Over-supplying ids is tolerated; template authors may pass more
		// than the template consumes.
		logger.Warn("unused id params for endpoint",
			"endpoint", template, "supplied", len(ids), "used", used)
	}

	for _, child := range children {
		if child != "" {
			path = strings.TrimSuffix(path, "/") + "/" + child
		}
	}

	if method != "" {
		if strings.Contains(path, "{method}") {
			path = strings.ReplaceAll(path, "{method}", method)
		} else {
			path = path + ":" + method
		}
	}

	full := strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(path, "/")

	if len(queries) > 0 {
		var sb strings.Builder
		for i, q := range queries {
			if i > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(q.Key))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(q.Value))
		}
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full = full + sep + sb.String()
	}

	return full, nil
}

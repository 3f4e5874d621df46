package restpipe

// Service is a logical grouping of endpoints under one Client. Services
// compose: a service may spawn child services for sub-resources, and a
// service may declare its own beta headers, which the injector prefers
// over the client-wide ones.
type Service struct {
	client      *Client
	name        string
	parent      *Service
	betaHeaders map[string]string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithBetaHeaders sets provider-specific beta headers on the service.
func WithBetaHeaders(headers map[string]string) ServiceOption {
	return func(s *Service) { s.betaHeaders = headers }
}

// Client returns the owning client.
func (s *Service) Client() *Client { return s.client }

// Name returns the service name.
func (s *Service) Name() string { return s.name }

// Child creates a sub-service. Children inherit the parent's beta
// headers unless they declare their own.
func (s *Service) Child(name string, opts ...ServiceOption) *Service {
	child := &Service{client: s.client, name: name, parent: s}
	for _, opt := range opts {
		opt(child)
	}
	return child
}

// serviceBetaHeaders walks the service and its ancestors for explicitly
// declared beta headers. It never consults the client settings.
func (s *Service) serviceBetaHeaders() map[string]string {
	for svc := s; svc != nil; svc = svc.parent {
		if len(svc.betaHeaders) > 0 {
			return svc.betaHeaders
		}
	}
	return nil
}

// resolveBetaHeaders walks service, ancestors, then client settings for
// the applicable beta headers.
func (s *Service) resolveBetaHeaders() map[string]string {
	if headers := s.serviceBetaHeaders(); headers != nil {
		return headers
	}
	return s.client.settings.BetaHeaders
}

package provider

import "fmt"

// AuthStyle is how a secret is attached to an outbound request.
type AuthStyle int

const (
	AuthStyleQueryParam AuthStyle = iota
	AuthStyleBearerHeader
)

// Endpoint describes one named variant of the upstream provider URL and
// auth style, plus the fallback chain the driver walks on SERVICE_OVERLOAD.
type Endpoint struct {
	Name            string
	BaseURL         string
	AuthStyle       AuthStyle
	PreferredModels []string
	Fallbacks       []string
}

// EndpointRegistry resolves a (provider, endpoint) pair to its descriptor.
// Keyed as a first-class lookup rather than ad hoc constants so the
// fallback chain in Generate's retry step is a lookup, not a hardcoded
// slice.
type EndpointRegistry struct {
	byProviderEndpoint map[string]Endpoint
}

func NewEndpointRegistry() *EndpointRegistry {
	return &EndpointRegistry{byProviderEndpoint: make(map[string]Endpoint)}
}

func (r *EndpointRegistry) Register(provider string, ep Endpoint) {
	r.byProviderEndpoint[registryKey(provider, ep.Name)] = ep
}

func (r *EndpointRegistry) Lookup(provider, endpoint string) (Endpoint, bool) {
	ep, ok := r.byProviderEndpoint[registryKey(provider, endpoint)]
	return ep, ok
}

func registryKey(provider, endpoint string) string {
	return fmt.Sprintf("%s/%s", provider, endpoint)
}

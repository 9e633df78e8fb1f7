package provider

// DefaultEndpointRegistry returns the registry wired with Gemini's
// generateContent surface: a primary endpoint plus a secondary region
// fallback the driver walks on SERVICE_OVERLOAD.
func DefaultEndpointRegistry() *EndpointRegistry {
	r := NewEndpointRegistry()

	r.Register("gemini", Endpoint{
		Name:      "primary",
		BaseURL:   "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash-image:generateContent",
		AuthStyle: AuthStyleQueryParam,
		PreferredModels: []string{
			"gemini-2.5-flash-image",
			"gemini-2.5-flash-image-preview",
		},
		Fallbacks: []string{"secondary"},
	})

	r.Register("gemini", Endpoint{
		Name:      "secondary",
		BaseURL:   "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash-image-preview:generateContent",
		AuthStyle: AuthStyleQueryParam,
		PreferredModels: []string{
			"gemini-2.5-flash-image-preview",
		},
		Fallbacks: []string{"primary"},
	})

	return r
}

package validation

import (
	"net/url"
	"slices"
	"strings"

	apperrors "github.com/anime-shed/authenticity-validator-go/internal/errors"
)

// EndpointValidator checks the configured validation service base endpoint
// before anything is sent to it.
type EndpointValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewEndpointValidator creates a validator accepting any http or https host
func NewEndpointValidator() *EndpointValidator {
	return &EndpointValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewEndpointValidatorWithOptions creates a validator with custom schemes and hosts.
// Hosts are matched without their port.
func NewEndpointValidatorWithOptions(schemes []string, hosts []string) *EndpointValidator {
	return &EndpointValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateEndpoint parses and validates a service base URL and returns it
// normalised (no trailing slash).
func (v *EndpointValidator) ValidateEndpoint(endpoint string) (*url.URL, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, apperrors.NewValidationError("endpoint cannot be empty", nil)
	}

	parsedURL, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, apperrors.NewValidationError("invalid endpoint format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return nil, apperrors.NewValidationError("endpoint scheme not allowed", nil)
	}

	if parsedURL.Hostname() == "" {
		return nil, apperrors.NewValidationError("endpoint must have a valid host", nil)
	}

	if !v.isHostAllowed(parsedURL.Hostname()) {
		return nil, apperrors.NewValidationError("endpoint host not allowed", nil)
	}

	if parsedURL.RawQuery != "" || parsedURL.Fragment != "" {
		return nil, apperrors.NewValidationError("endpoint must not carry a query or fragment", nil)
	}

	parsedURL.Path = strings.TrimRight(parsedURL.Path, "/")
	parsedURL.RawPath = ""
	return parsedURL, nil
}

func (v *EndpointValidator) isSchemeAllowed(scheme string) bool {
	return slices.Contains(v.allowedSchemes, strings.ToLower(scheme))
}

// isHostAllowed returns true if no host restrictions are set
func (v *EndpointValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	return slices.Contains(v.allowedHosts, host)
}

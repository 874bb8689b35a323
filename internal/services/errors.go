package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ConfigError means the relay cannot call its provider because the
// operator has not configured it. Never retried.
type ConfigError struct{ Message string }

func (e *ConfigError) Error() string { return e.Message }

// AuthError means the provider rejected the configured credential.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s rejected the API key: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// UpstreamError carries a non-success status relayed from a backend service.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string { return e.Message }

func missingCredential(envVar string) *ConfigError {
	return &ConfigError{
		Message: fmt.Sprintf("%s not configured. Please set it in your environment variables.", envVar),
	}
}

// classifyProviderError turns a provider SDK failure into an *AuthError when
// the credential was rejected, otherwise wraps it with the provider name.
func classifyProviderError(provider string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	if isCredentialRejection(statusCode, err) {
		return &AuthError{Provider: provider, Err: err}
	}
	return fmt.Errorf("%s API error: %w", provider, err)
}

func isCredentialRejection(statusCode int, err error) bool {
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		return true
	}

	var grpcErr interface{ GRPCStatus() *status.Status }
	if errors.As(err, &grpcErr) {
		switch grpcErr.GRPCStatus().Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return true
		}
	}

	return strings.Contains(err.Error(), "API key")
}

package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fpang/prompt-studio/internal/metrics"
	"github.com/fpang/prompt-studio/internal/textutil"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// ValidationError represents a specific type of API key validation failure.
type ValidationError struct {
	Type    ValidationErrorType
	Message string
	Err     error
}

// ValidationErrorType categorizes validation failures.
type ValidationErrorType int

const (
	// ErrTypeNoKey indicates no API key was supplied.
	ErrTypeNoKey ValidationErrorType = iota
	// ErrTypeInvalidKey indicates the API key is invalid or revoked.
	ErrTypeInvalidKey
	// ErrTypeNetworkError indicates a network connectivity issue.
	ErrTypeNetworkError
	// ErrTypeQuotaExceeded indicates the API quota has been exceeded.
	ErrTypeQuotaExceeded
	// ErrTypeUnknown indicates an unknown error occurred.
	ErrTypeUnknown
)

func (t ValidationErrorType) String() string {
	switch t {
	case ErrTypeNoKey:
		return "no_key"
	case ErrTypeInvalidKey:
		return "invalid"
	case ErrTypeNetworkError:
		return "network_error"
	case ErrTypeQuotaExceeded:
		return "quota"
	default:
		return "unknown"
	}
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ModelLister is the slice of the OpenAI client used to prove a key works.
type ModelLister interface {
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// NewOpenAIClient builds a go-openai client for key, pointed at baseURL when set.
func NewOpenAIClient(key, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(key)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// ValidateOpenAIKey verifies the key by listing models, the cheapest
// authenticated call the provider offers. It returns nil if the key is valid,
// or a ValidationError describing the failure.
func ValidateOpenAIKey(ctx context.Context, key string, client ModelLister) error {
	if strings.TrimSpace(key) == "" {
		metrics.KeyValidationTotal.WithLabelValues(ErrTypeNoKey.String()).Inc()
		return &ValidationError{Type: ErrTypeNoKey, Message: "Please enter your OpenAI API key"}
	}

	log.Debug().Str("key_prefix", textutil.KeyPrefix(key)).Msg("Validating API key with OpenAI")

	start := time.Now()
	_, err := client.ListModels(ctx)
	elapsed := time.Since(start)

	if err != nil {
		valErr := classifyError(err)
		metrics.KeyValidationTotal.WithLabelValues(valErr.Type.String()).Inc()
		log.Warn().
			Str("key_prefix", textutil.KeyPrefix(key)).
			Str("result", valErr.Type.String()).
			Dur("duration", elapsed).
			Msg("API key validation failed")
		return valErr
	}

	metrics.KeyValidationTotal.WithLabelValues("success").Inc()
	log.Info().
		Str("key_prefix", textutil.KeyPrefix(key)).
		Dur("duration", elapsed).
		Msg("API key validated successfully")
	return nil
}

// classifyError analyzes an error and returns a ValidationError with the appropriate type.
func classifyError(err error) *ValidationError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, reqErr.Error(), err)
	}

	errLower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errLower, "incorrect api key") ||
		strings.Contains(errLower, "invalid api key") ||
		strings.Contains(errLower, "invalid_api_key") ||
		strings.Contains(errLower, "unauthorized"):
		return &ValidationError{
			Type:    ErrTypeInvalidKey,
			Message: "API key is invalid or has been revoked",
			Err:     err,
		}

	case strings.Contains(errLower, "quota") ||
		strings.Contains(errLower, "rate limit"):
		return &ValidationError{
			Type:    ErrTypeQuotaExceeded,
			Message: "API quota exceeded or rate limited",
			Err:     err,
		}

	case strings.Contains(errLower, "connection") ||
		strings.Contains(errLower, "network") ||
		strings.Contains(errLower, "timeout") ||
		strings.Contains(errLower, "dial") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "unreachable"):
		return &ValidationError{
			Type:    ErrTypeNetworkError,
			Message: "Network error - check your internet connection",
			Err:     err,
		}

	default:
		return &ValidationError{
			Type:    ErrTypeUnknown,
			Message: "Failed to validate API key",
			Err:     err,
		}
	}
}

func classifyStatus(code int, message string, err error) *ValidationError {
	switch {
	case code == 401 || code == 403:
		return &ValidationError{
			Type:    ErrTypeInvalidKey,
			Message: "API key is invalid, expired, or lacks permissions",
			Err:     err,
		}
	case code == 429:
		return &ValidationError{
			Type:    ErrTypeQuotaExceeded,
			Message: "API rate limit exceeded - try again later",
			Err:     err,
		}
	case code >= 500:
		return &ValidationError{
			Type:    ErrTypeNetworkError,
			Message: "OpenAI API server error - try again later",
			Err:     err,
		}
	default:
		if message == "" {
			message = "Failed to validate API key"
		}
		return &ValidationError{Type: ErrTypeUnknown, Message: message, Err: err}
	}
}

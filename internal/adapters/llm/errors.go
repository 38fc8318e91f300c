package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

// ProviderError describes a failed call to a model backend.
type ProviderError struct {
	Provider  string
	Status    int
	Message   string
	Retryable bool
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
}

// mapHTTPError turns a non-2xx backend response into a GENERATION_FAILED error.
func mapHTTPError(status int, msg, provider string) error {
	pe := &ProviderError{Provider: provider, Status: status, Message: msg}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		pe.Message = "authentication failed: " + msg
	case http.StatusTooManyRequests:
		pe.Retryable = true
	case http.StatusBadRequest:
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "quota") || strings.Contains(lower, "credit") {
			pe.Message = "quota exceeded: " + msg
		}
	default:
		pe.Retryable = status >= 500
	}
	return entities.NewError(entities.ErrGenerationFailed, "model backend rejected the request").WithCause(pe)
}

// transportError wraps a network or decoding failure.
func transportError(provider string, err error) error {
	return entities.NewError(entities.ErrGenerationFailed, "model backend unreachable").
		WithCause(&ProviderError{Provider: provider, Message: err.Error(), Retryable: true})
}

// readErrorMessage extracts the message of a JSON error body, falling back to raw text.
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(data, &errResp) == nil && len(errResp.Error) > 0 {
		var obj struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		}
		if json.Unmarshal(errResp.Error, &obj) == nil && obj.Message != "" {
			if obj.Type != "" {
				return fmt.Sprintf("%s (type: %s)", obj.Message, obj.Type)
			}
			return obj.Message
		}
		var s string
		if json.Unmarshal(errResp.Error, &s) == nil && s != "" {
			return s
		}
	}
	return strings.TrimSpace(string(data))
}

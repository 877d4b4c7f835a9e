package generate

import (
	"errors"
	"strings"

	"github.com/gildcraft/guildgen/pkg/provider"
)

// ErrGenerationFailed matches every error returned by Generate.
var ErrGenerationFailed = errors.New("generation failed")

const (
	msgNoResponse = "No response generated from AI"
	msgFallback   = "Failed to generate content"
)

// Error is a GenerationFailed error. Message is safe to show to users.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

// Is reports whether target is ErrGenerationFailed.
func (e *Error) Is(target error) bool { return target == ErrGenerationFailed }

func (e *Error) Unwrap() error { return e.Err }

// failed picks the best message available: the provider's own, then the
// error text, then a generic fallback.
func failed(err error) *Error {
	var msg string
	var se *provider.StatusError
	switch {
	case errors.As(err, &se) && strings.TrimSpace(se.Message) != "":
		msg = se.Message
	case err != nil:
		msg = err.Error()
	}
	if strings.TrimSpace(msg) == "" {
		msg = msgFallback
	}
	return &Error{Message: msg, Err: err}
}

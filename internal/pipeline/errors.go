package pipeline

import "fmt"

// Kind classifies pipeline failures for callers and for the JSON contract.
type Kind string

const (
	// KindInvalidInput marks a missing or empty input file.
	KindInvalidInput Kind = "invalid_input"
	// KindModelUnavailable marks a main-model load failure.
	KindModelUnavailable Kind = "model_unavailable"
	// KindEmptyAudio marks a decode that produced no samples.
	KindEmptyAudio Kind = "empty_audio"
	// KindNoSpeech marks a valid run that emitted zero segments.
	KindNoSpeech Kind = "no_speech"
	// KindUnexpected marks any fault outside the known taxonomy.
	KindUnexpected Kind = "unexpected"
)

// Error is a stage-aware pipeline failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func failf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Package inference abstracts the speech-to-text library behind a small
// capability interface. Implementations may be a no-op stub or backed by
// whisper.cpp (build tag: whisper_cpp).
package inference

import (
	"errors"

	"github.com/typist/gowhisperx/internal/device"
)

// Segment is one contiguous span of transcribed text with timing in seconds.
type Segment struct {
	Text  string
	Start float64
	End   float64
}

// Output is the raw transcription produced by a model pass.
type Output struct {
	Segments []Segment
	Language string
}

// Model is a loaded main transcription model. Exclusively owned by the
// lifecycle manager; Close releases the underlying native resources.
type Model interface {
	// Transcribe runs inference over mono 16 kHz float32 samples.
	Transcribe(samples []float32, batchSize int) (Output, error)
	Close() error
}

// AlignModel is a loaded alignment model refining segment boundaries.
// Optional: absence is a degraded but functional state.
type AlignModel interface {
	Close() error
}

// Metadata carries alignment-model bookkeeping opaque to the caller.
type Metadata map[string]any

// Library is the inference-library capability. All calls are fallible,
// externally versioned black boxes.
type Library interface {
	// Available reports whether a real backend was compiled in.
	Available() bool
	LoadModel(size string, dev device.Device) (Model, error)
	LoadAlignModel(language string, dev device.Device) (AlignModel, Metadata, error)
	// LoadAudio decodes an audio file into mono 16 kHz float32 samples.
	LoadAudio(path string) ([]float32, error)
	Align(segments []Segment, model AlignModel, meta Metadata, samples []float32, dev device.Device) ([]Segment, error)
}

// ErrUnavailable is returned by the stub backend for any model operation.
var ErrUnavailable = errors.New("whisper backend not compiled in (build with -tags whisper_cpp)")

// ErrAlignUnsupported is returned when the backend has no alignment stage.
var ErrAlignUnsupported = errors.New("alignment not supported by this backend")

//go:build !whisper_cpp

package inference

import (
	"github.com/rs/zerolog"

	"github.com/typist/gowhisperx/internal/audio"
	"github.com/typist/gowhisperx/internal/device"
)

// Default stub (no cgo) so the project builds without the whisper_cpp tag.
// Audio decoding still works; model operations report the missing backend.
type stubLibrary struct{}

func NewLibrary(modelDir string, log zerolog.Logger) Library { return &stubLibrary{} }

func (l *stubLibrary) Available() bool { return false }

func (l *stubLibrary) LoadModel(size string, dev device.Device) (Model, error) {
	return nil, ErrUnavailable
}

func (l *stubLibrary) LoadAlignModel(language string, dev device.Device) (AlignModel, Metadata, error) {
	return nil, nil, ErrUnavailable
}

func (l *stubLibrary) LoadAudio(path string) ([]float32, error) {
	return audio.LoadFile(path)
}

func (l *stubLibrary) Align(segments []Segment, model AlignModel, meta Metadata, samples []float32, dev device.Device) ([]Segment, error) {
	return nil, ErrUnavailable
}

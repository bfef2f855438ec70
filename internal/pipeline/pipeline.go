// Package pipeline orchestrates one transcription run: validate input,
// ensure the model is loaded, decode, infer, optionally align, assemble.
package pipeline

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/typist/gowhisperx/internal/device"
	"github.com/typist/gowhisperx/internal/inference"
	"github.com/typist/gowhisperx/internal/lifecycle"
)

// Result is the single JSON object every invocation emits on stdout.
type Result struct {
	Success   bool   `json:"success"`
	Text      string `json:"text,omitempty"`
	Segments  int    `json:"segments,omitempty"`
	Language  string `json:"language,omitempty"`
	ModelSize string `json:"model_size,omitempty"`
	Device    string `json:"device,omitempty"`
	Error     string `json:"error,omitempty"`
}

// failure builds the error-shaped result for a pipeline fault.
func failure(dev device.Device, err *Error) Result {
	return Result{Device: string(dev), Error: err.Error()}
}

// Pipeline runs transcriptions against one lifecycle manager and device.
type Pipeline struct {
	mgr       *lifecycle.Manager
	lib       inference.Library
	rt        device.Runtime
	modelSize string
	log       zerolog.Logger

	stat func(string) (os.FileInfo, error)
}

// New builds a pipeline. modelSize is the size loaded on demand when a
// transcription arrives before an explicit Load.
func New(mgr *lifecycle.Manager, lib inference.Library, rt device.Runtime, modelSize string, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		mgr:       mgr,
		lib:       lib,
		rt:        rt,
		modelSize: modelSize,
		log:       log,
		stat:      os.Stat,
	}
}

// Transcribe runs the full pipeline for one audio file. It never panics:
// unexpected faults are converted into an error-shaped Result so the caller
// can always emit the JSON contract.
func (p *Pipeline) Transcribe(path string) (res Result) {
	dev := p.mgr.Device()
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("pipeline: unexpected fault")
			res = failure(dev, failf(KindUnexpected, "unexpected error: %v", r))
		}
	}()

	if err := p.run(path, &res); err != nil {
		p.log.Error().Err(err).Str("path", path).Str("kind", string(err.Kind)).Msg("pipeline: transcription failed")
		return failure(dev, err)
	}
	return res
}

func (p *Pipeline) run(path string, res *Result) *Error {
	dev := p.mgr.Device()

	info, err := p.stat(path)
	if err != nil {
		return failf(KindInvalidInput, "audio file not found: %s", path)
	}
	if info.Size() == 0 {
		return failf(KindInvalidInput, "audio file is empty: %s", path)
	}
	p.log.Info().Str("path", path).Int64("bytes", info.Size()).Msg("pipeline: transcribing")

	if !p.mgr.Ready() {
		if err := p.mgr.Load(p.modelSize); err != nil {
			return wrap(KindModelUnavailable, "failed to load model", err)
		}
	}

	samples, err := p.lib.LoadAudio(path)
	if err != nil {
		return wrap(KindEmptyAudio, "could not load audio data", err)
	}
	if len(samples) == 0 {
		return failf(KindEmptyAudio, "could not load audio data: no samples")
	}
	p.log.Info().Int("samples", len(samples)).Msg("pipeline: audio loaded")

	free, memOK := p.rt.MemoryFreeBytes()
	batch := device.BatchSize(dev, free, memOK)
	p.log.Info().Int("batch_size", batch).Bool("memory_readable", memOK).Msg("pipeline: starting inference")

	out, err := p.mgr.Model().Transcribe(samples, batch)
	if err != nil {
		return wrap(KindUnexpected, "transcription failed", err)
	}
	if len(out.Segments) == 0 {
		return failf(KindNoSpeech, "no speech detected in audio")
	}
	p.log.Info().Int("segments", len(out.Segments)).Msg("pipeline: inference complete")

	segments := out.Segments
	if p.mgr.HasAlignment() {
		aligned, err := p.mgr.AlignSegments(segments, samples)
		if err != nil {
			// Degraded, not fatal: keep the unaligned segments.
			p.log.Warn().Err(err).Msg("pipeline: alignment failed, using unaligned result")
		} else {
			segments = aligned
		}
	}

	language := out.Language
	if language == "" {
		language = "en"
	}

	*res = Result{
		Success:   true,
		Text:      Assemble(segments),
		Segments:  len(segments),
		Language:  language,
		ModelSize: p.mgr.ModelSize(),
		Device:    string(dev),
	}
	return nil
}

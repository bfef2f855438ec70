//go:build whisper_cpp

package inference

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	whisperpkg "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog"

	"github.com/typist/gowhisperx/internal/audio"
	"github.com/typist/gowhisperx/internal/device"
)

// cppLibrary is the whisper.cpp-backed implementation of Library.
type cppLibrary struct {
	modelDir string
	threads  uint
	log      zerolog.Logger
}

// NewLibrary returns the whisper.cpp-backed inference library. Models are
// resolved as ggml-<size>.bin inside modelDir.
func NewLibrary(modelDir string, log zerolog.Logger) Library {
	threads := uint(runtime.NumCPU())
	if v := os.Getenv("WHISPERX_GO_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			threads = uint(n)
			log.Info().Int("threads", n).Msg("inference: using configured thread count")
		}
	}
	return &cppLibrary{modelDir: modelDir, threads: threads, log: log}
}

func (l *cppLibrary) Available() bool { return true }

func (l *cppLibrary) LoadModel(size string, dev device.Device) (Model, error) {
	path := filepath.Join(l.modelDir, "ggml-"+size+".bin")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file %q: %w", path, err)
	}

	m, err := whisperpkg.New(path)
	if err != nil {
		return nil, fmt.Errorf("load model %q: %w", path, err)
	}
	l.log.Info().Str("model", path).Str("device", string(dev)).Msg("inference: model loaded")
	return &cppModel{model: m, threads: l.threads, log: l.log}, nil
}

// LoadAlignModel always fails: whisper.cpp ships no phoneme alignment model.
// The lifecycle manager treats this as a non-fatal degraded state.
func (l *cppLibrary) LoadAlignModel(language string, dev device.Device) (AlignModel, Metadata, error) {
	return nil, nil, ErrAlignUnsupported
}

func (l *cppLibrary) LoadAudio(path string) ([]float32, error) {
	return audio.LoadFile(path)
}

func (l *cppLibrary) Align(segments []Segment, model AlignModel, meta Metadata, samples []float32, dev device.Device) ([]Segment, error) {
	return nil, ErrAlignUnsupported
}

// cppModel wraps a whisper.cpp model handle.
type cppModel struct {
	model   whisperpkg.Model
	threads uint
	log     zerolog.Logger
}

func (m *cppModel) Close() error {
	if m.model != nil {
		err := m.model.Close()
		m.model = nil
		return err
	}
	return nil
}

// Transcribe runs a full-context pass over the samples. whisper.cpp decodes
// sequentially, so batchSize only shapes logging here; it is honored by
// backends with batched decoders.
func (m *cppModel) Transcribe(samples []float32, batchSize int) (Output, error) {
	if m.model == nil {
		return Output{}, fmt.Errorf("model already released")
	}

	ctx, err := m.model.NewContext()
	if err != nil {
		return Output{}, fmt.Errorf("create context: %w", err)
	}
	ctx.SetThreads(m.threads)
	_ = ctx.SetLanguage("auto")
	ctx.SetSplitOnWord(true)
	ctx.SetTokenTimestamps(true)

	m.log.Debug().Int("samples", len(samples)).Int("batch_size", batchSize).Msg("inference: transcribing")
	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return Output{}, fmt.Errorf("process audio: %w", err)
	}

	var out Output
	for {
		seg, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Output{}, fmt.Errorf("next segment: %w", err)
		}
		out.Segments = append(out.Segments, Segment{
			Text:  seg.Text,
			Start: seg.Start.Seconds(),
			End:   seg.End.Seconds(),
		})
	}

	out.Language = ctx.Language()
	if out.Language == "" || out.Language == "auto" {
		out.Language = ctx.DetectedLanguage()
	}
	return out, nil
}

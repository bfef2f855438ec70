// Package lifecycle owns the load/use/release state machine for the main
// and alignment models. Accelerator memory is only reclaimed through the
// explicit Release path; nothing here relies on finalizers.
package lifecycle

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/typist/gowhisperx/internal/device"
	"github.com/typist/gowhisperx/internal/inference"
)

// State is the lifecycle phase of the managed models.
type State uint8

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateCleaningUp
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateCleaningUp:
		return "cleaning_up"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Manager holds exclusive ownership of the loaded model handles.
//
// Operations are sequential within a session, but the interrupt path calls
// Release from a signal goroutine, so state is mutex-guarded.
type Manager struct {
	lib      inference.Library
	rt       device.Runtime
	dev      device.Device
	language string
	log      zerolog.Logger

	mu        sync.Mutex
	state     State
	model     inference.Model
	align     inference.AlignModel
	alignMeta inference.Metadata
	modelSize string
}

// NewManager builds a manager for one session on the given device.
func NewManager(lib inference.Library, rt device.Runtime, dev device.Device, language string, log zerolog.Logger) *Manager {
	if language == "" {
		language = "en"
	}
	return &Manager{
		lib:      lib,
		rt:       rt,
		dev:      dev,
		language: language,
		log:      log,
		state:    StateEmpty,
	}
}

// Device returns the session compute device. It never changes mid-session,
// even when the alignment stage runs downgraded on CPU.
func (m *Manager) Device() device.Device { return m.dev }

// State returns the current lifecycle phase.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ready reports whether the main model is loaded.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateReady && m.model != nil
}

// HasAlignment reports whether the optional alignment model is loaded.
func (m *Manager) HasAlignment() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.align != nil
}

// Model returns the loaded main model, or nil before Load succeeds.
func (m *Manager) Model() inference.Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

// ModelSize returns the size label of the loaded model, or "" when empty.
func (m *Manager) ModelSize() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modelSize
}

// Load brings the manager to Ready with the given model size.
//
// Loading the size already resident is a no-op. Loading a different size
// first performs a full release. A main-model failure returns the state to
// Empty; an alignment-model failure is logged and leaves the session in a
// degraded but Ready state.
func (m *Manager) Load(size string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateReady {
		if m.modelSize == size {
			return nil
		}
		m.log.Info().Str("from", m.modelSize).Str("to", size).Msg("lifecycle: model size changed, releasing")
		m.releaseLocked()
	}
	if m.state != StateEmpty {
		return fmt.Errorf("load invalid from state %s", m.state)
	}

	m.state = StateLoading
	m.log.Info().Str("size", size).Str("device", string(m.dev)).Msg("lifecycle: loading model")

	model, err := m.lib.LoadModel(size, m.dev)
	if err != nil {
		m.state = StateEmpty
		return fmt.Errorf("load model: %w", err)
	}
	m.model = model
	m.modelSize = size

	// Alignment is best effort. MPS is incompatible with the alignment
	// stage, so that load alone targets CPU; the session device stands.
	alignDev := m.dev.AlignTarget()
	align, meta, err := m.lib.LoadAlignModel(m.language, alignDev)
	if err != nil {
		m.log.Warn().Err(err).Msg("lifecycle: alignment model unavailable, continuing unaligned")
	} else {
		m.align = align
		m.alignMeta = meta
		m.log.Info().Str("device", string(alignDev)).Msg("lifecycle: alignment model loaded")
	}

	m.state = StateReady
	return nil
}

// AlignSegments refines segment boundaries using the alignment model.
// Callers must check HasAlignment first.
func (m *Manager) AlignSegments(segments []inference.Segment, samples []float32) ([]inference.Segment, error) {
	m.mu.Lock()
	align, meta := m.align, m.alignMeta
	m.mu.Unlock()
	if align == nil {
		return segments, nil
	}
	return m.lib.Align(segments, align, meta, samples, m.dev.AlignTarget())
}

// Release drops both model handles and reclaims accelerator memory. Valid
// from any state and idempotent; every step is guarded so one failure never
// prevents the next, and no error ever escapes to the caller.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
}

func (m *Manager) releaseLocked() {
	if m.state == StateEmpty && m.model == nil && m.align == nil {
		return
	}
	m.state = StateCleaningUp
	m.log.Info().Msg("lifecycle: releasing models")

	if m.model != nil {
		if err := m.model.Close(); err != nil {
			m.log.Warn().Err(err).Msg("lifecycle: main model close failed")
		}
		m.model = nil
	}
	if m.align != nil {
		if err := m.align.Close(); err != nil {
			m.log.Warn().Err(err).Msg("lifecycle: alignment model close failed")
		}
		m.align = nil
	}
	m.alignMeta = nil
	m.modelSize = ""

	// Native handles pin large Go-side buffers; collect before asking the
	// accelerator to drop its cache.
	runtime.GC()

	if m.dev.IsAccelerator() {
		if err := m.rt.EmptyCache(); err != nil {
			m.log.Warn().Err(err).Msg("lifecycle: cache clear failed")
		}
		if err := m.rt.Synchronize(); err != nil {
			m.log.Warn().Err(err).Msg("lifecycle: synchronize failed")
		}
	}

	m.state = StateEmpty
	m.log.Info().Msg("lifecycle: release complete")
}

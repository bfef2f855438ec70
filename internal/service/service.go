// Package service composes device selection, model lifecycle, and the
// transcription pipeline behind one scoped facade.
package service

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/typist/gowhisperx/internal/config"
	"github.com/typist/gowhisperx/internal/device"
	"github.com/typist/gowhisperx/internal/inference"
	"github.com/typist/gowhisperx/internal/lifecycle"
	"github.com/typist/gowhisperx/internal/pipeline"
)

// Service is one transcription session. Not safe for concurrent use:
// callers needing parallel work create one Service per unit of work. The
// accelerator memory pool is shared process-wide; concurrent sessions on
// the same device may contend and that is the caller's to arbitrate.
type Service struct {
	cfg  *config.Config
	lib  inference.Library
	rt   device.Runtime
	dev  device.Device
	mgr  *lifecycle.Manager
	pipe *pipeline.Pipeline
	log  zerolog.Logger
}

// New builds a session. The compute device is selected exactly once here
// and never changes for the life of the service.
func New(cfg *config.Config, lib inference.Library, rt device.Runtime, log zerolog.Logger) *Service {
	dev := cfg.ForcedDevice()
	if dev == "" {
		dev = device.Select(rt)
	}
	log.Info().Str("device", string(dev)).Msg("service: compute device selected")

	mgr := lifecycle.NewManager(lib, rt, dev, cfg.Language, log)
	return &Service{
		cfg:  cfg,
		lib:  lib,
		rt:   rt,
		dev:  dev,
		mgr:  mgr,
		pipe: pipeline.New(mgr, lib, rt, cfg.ModelSize, log),
		log:  log,
	}
}

// With runs fn against a fresh session and guarantees Release on every
// exit path, including panics propagating out of fn.
func With(cfg *config.Config, lib inference.Library, rt device.Runtime, log zerolog.Logger, fn func(*Service) error) error {
	svc := New(cfg, lib, rt, log)
	defer svc.Release()
	return fn(svc)
}

// Device returns the session compute device.
func (s *Service) Device() device.Device { return s.dev }

// Load brings the configured model into memory ahead of the first request.
func (s *Service) Load() error {
	if err := s.mgr.Load(s.cfg.ModelSize); err != nil {
		return fmt.Errorf("service: %w", err)
	}
	return nil
}

// Transcribe runs the pipeline for one audio file.
func (s *Service) Transcribe(path string) pipeline.Result {
	return s.pipe.Transcribe(path)
}

// Release tears the session down. Safe to call more than once and from the
// interrupt path; it never returns an error by contract.
func (s *Service) Release() {
	s.mgr.Release()
}

// Info is the diagnostic object behind the --info flag.
type Info struct {
	Device            string `json:"device"`
	Platform          string `json:"platform"`
	GoVersion         string `json:"go_version"`
	WhisperAvailable  bool   `json:"whisper_available"`
	CUDAAvailable     bool   `json:"cuda_available"`
	MPSAvailable      bool   `json:"mps_available"`
	ModelState        string `json:"model_state"`
	MemoryFreeGB      string `json:"memory_free_gb,omitempty"`
	MemoryAllocatedGB string `json:"memory_allocated_gb,omitempty"`
}

// Info reports device and runtime diagnostics for operators.
func (s *Service) Info() Info {
	info := Info{
		Device:           string(s.dev),
		Platform:         runtime.GOOS + "/" + runtime.GOARCH,
		GoVersion:        runtime.Version(),
		WhisperAvailable: s.lib.Available(),
		CUDAAvailable:    s.rt.CUDAAvailable(),
		MPSAvailable:     s.rt.MPSAvailable(),
		ModelState:       s.mgr.State().String(),
	}
	if free, ok := s.rt.MemoryFreeBytes(); ok {
		info.MemoryFreeGB = fmt.Sprintf("%.2f", float64(free)/1e9)
	}
	if used, ok := s.rt.MemoryAllocatedBytes(); ok {
		info.MemoryAllocatedGB = fmt.Sprintf("%.2f", float64(used)/1e9)
	}
	return info
}

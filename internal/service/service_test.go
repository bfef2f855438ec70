package service

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/typist/gowhisperx/internal/config"
	"github.com/typist/gowhisperx/internal/device"
	"github.com/typist/gowhisperx/internal/inference"
	"github.com/typist/gowhisperx/internal/lifecycle"
)

type fakeModel struct{ closed int }

func (m *fakeModel) Transcribe(samples []float32, batchSize int) (inference.Output, error) {
	return inference.Output{Segments: []inference.Segment{{Text: "hi"}}}, nil
}
func (m *fakeModel) Close() error { m.closed++; return nil }

type fakeLibrary struct {
	model   *fakeModel
	loadErr error
}

func (l *fakeLibrary) Available() bool { return true }

func (l *fakeLibrary) LoadModel(size string, dev device.Device) (inference.Model, error) {
	if l.loadErr != nil {
		return nil, l.loadErr
	}
	if l.model == nil {
		l.model = &fakeModel{}
	}
	return l.model, nil
}

func (l *fakeLibrary) LoadAlignModel(language string, dev device.Device) (inference.AlignModel, inference.Metadata, error) {
	return nil, nil, inference.ErrAlignUnsupported
}

func (l *fakeLibrary) LoadAudio(path string) ([]float32, error) {
	return []float32{0.1}, nil
}

func (l *fakeLibrary) Align(segments []inference.Segment, model inference.AlignModel, meta inference.Metadata, samples []float32, dev device.Device) ([]inference.Segment, error) {
	return segments, nil
}

type fakeRuntime struct {
	cuda bool
	mps  bool
}

func (f *fakeRuntime) CUDAAvailable() bool                  { return f.cuda }
func (f *fakeRuntime) MPSAvailable() bool                   { return f.mps }
func (f *fakeRuntime) MemoryFreeBytes() (uint64, bool)      { return 16e9, true }
func (f *fakeRuntime) MemoryAllocatedBytes() (uint64, bool) { return 2e9, true }
func (f *fakeRuntime) EmptyCache() error                    { return nil }
func (f *fakeRuntime) Synchronize() error                   { return nil }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Device = "auto"
	return cfg
}

func TestNewSelectsDeviceOnce(t *testing.T) {
	svc := New(testConfig(), &fakeLibrary{}, &fakeRuntime{cuda: true}, zerolog.Nop())
	if svc.Device() != device.CUDA {
		t.Errorf("Device() = %q, want cuda", svc.Device())
	}
}

func TestNewHonorsForcedDevice(t *testing.T) {
	cfg := testConfig()
	cfg.Device = "cpu"
	svc := New(cfg, &fakeLibrary{}, &fakeRuntime{cuda: true}, zerolog.Nop())
	if svc.Device() != device.CPU {
		t.Errorf("Device() = %q, want forced cpu", svc.Device())
	}
}

func TestWithReleasesOnSuccess(t *testing.T) {
	lib := &fakeLibrary{}
	var seen *Service
	err := With(testConfig(), lib, &fakeRuntime{}, zerolog.Nop(), func(svc *Service) error {
		seen = svc
		return svc.Load()
	})
	if err != nil {
		t.Fatalf("With() error = %v", err)
	}
	if lib.model.closed != 1 {
		t.Errorf("model closed %d times, want 1", lib.model.closed)
	}
	if seen.mgr.State() != lifecycle.StateEmpty {
		t.Errorf("state = %s after scope, want empty", seen.mgr.State())
	}
}

func TestWithReleasesOnError(t *testing.T) {
	lib := &fakeLibrary{}
	wantErr := errors.New("caller failure")
	var seen *Service
	err := With(testConfig(), lib, &fakeRuntime{}, zerolog.Nop(), func(svc *Service) error {
		seen = svc
		if err := svc.Load(); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("With() error = %v, want caller failure", err)
	}
	if lib.model.closed != 1 {
		t.Errorf("model closed %d times, want 1", lib.model.closed)
	}
	if seen.mgr.State() != lifecycle.StateEmpty {
		t.Errorf("state = %s after failed scope, want empty", seen.mgr.State())
	}
}

func TestWithReleasesOnPanic(t *testing.T) {
	lib := &fakeLibrary{}
	var seen *Service
	func() {
		defer func() { _ = recover() }()
		_ = With(testConfig(), lib, &fakeRuntime{}, zerolog.Nop(), func(svc *Service) error {
			seen = svc
			if err := svc.Load(); err != nil {
				return err
			}
			panic("mid-inference fault")
		})
	}()
	if lib.model.closed != 1 {
		t.Errorf("model closed %d times after panic, want 1", lib.model.closed)
	}
	if seen.mgr.State() != lifecycle.StateEmpty {
		t.Errorf("state = %s after panic, want empty", seen.mgr.State())
	}
}

func TestDoubleReleaseIsSafe(t *testing.T) {
	lib := &fakeLibrary{}
	svc := New(testConfig(), lib, &fakeRuntime{}, zerolog.Nop())
	if err := svc.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	svc.Release()
	svc.Release()
	if lib.model.closed != 1 {
		t.Errorf("model closed %d times, want 1", lib.model.closed)
	}
}

func TestInfo(t *testing.T) {
	svc := New(testConfig(), &fakeLibrary{}, &fakeRuntime{mps: true}, zerolog.Nop())
	info := svc.Info()

	if info.Device != "mps" {
		t.Errorf("Device = %q, want mps", info.Device)
	}
	if !info.WhisperAvailable {
		t.Error("WhisperAvailable = false with fake library present")
	}
	if !info.MPSAvailable || info.CUDAAvailable {
		t.Errorf("availability flags wrong: cuda=%v mps=%v", info.CUDAAvailable, info.MPSAvailable)
	}
	if info.ModelState != "empty" {
		t.Errorf("ModelState = %q, want empty", info.ModelState)
	}
	if info.MemoryFreeGB == "" {
		t.Error("MemoryFreeGB empty with readable counters")
	}
}

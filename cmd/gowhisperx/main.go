// gowhisperx is a single-shot transcription sidecar: one audio file path in,
// one JSON result object on stdout, exit code 0 on success and 1 otherwise.
// Logs go to stderr so stdout stays machine-readable.
package main

import (
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/typist/gowhisperx/internal/config"
	"github.com/typist/gowhisperx/internal/device"
	"github.com/typist/gowhisperx/internal/inference"
	"github.com/typist/gowhisperx/internal/pipeline"
	"github.com/typist/gowhisperx/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to YAML config file (default: $WHISPERX_GO_CONFIG)")
	showInfo := flag.Bool("info", false, "print device and runtime diagnostics as JSON")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fail("config: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return fail("config: " + err.Error())
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log.Logger = log.Level(lvl)
	}
	logger := log.Logger

	rt := device.NewHostRuntime(logger)
	lib := inference.NewLibrary(cfg.ModelDir, logger)

	if *showInfo {
		svc := service.New(cfg, lib, rt, logger)
		defer svc.Release()
		emit(svc.Info())
		return 0
	}

	if flag.NArg() < 1 {
		return fail("no audio file provided")
	}
	audioPath := flag.Arg(0)

	var result pipeline.Result
	_ = service.With(cfg, lib, rt, logger, func(svc *service.Service) error {
		// Coarse cancellation: an interrupt mid-stage still runs the
		// guaranteed release before the process exits.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			sig := <-sigCh
			logger.Warn().Str("signal", sig.String()).Msg("interrupt received, releasing models")
			svc.Release()
			emit(pipeline.Result{Error: "transcription interrupted"})
			os.Exit(1)
		}()

		result = svc.Transcribe(audioPath)
		return nil
	})

	emit(result)
	if result.Success {
		return 0
	}
	return 1
}

// emit writes exactly one JSON object to stdout.
func emit(v any) {
	if err := json.NewEncoder(os.Stdout).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode result")
	}
}

// fail emits an error-shaped result and returns the failure exit code.
func fail(msg string) int {
	emit(pipeline.Result{Error: msg})
	return 1
}

// Package audio decodes WAV files into the mono 16 kHz float32 PCM layout
// the inference backend consumes.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// WhisperSampleRate is the input rate whisper models are trained on.
const WhisperSampleRate = 16000

// LoadFile reads a WAV file and returns mono float32 samples at 16 kHz.
// Stereo input is downmixed; other rates are resampled.
func LoadFile(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	samples, rate, err := Decode(f)
	if err != nil {
		return nil, err
	}
	if rate != WhisperSampleRate {
		samples = ResampleLinear(samples, rate, WhisperSampleRate)
	}
	return samples, nil
}

// Decode decodes a WAV stream into float32 PCM samples normalized to [-1,1],
// downmixed to mono. Returns the samples and the source sample rate.
func Decode(r io.ReadSeeker) ([]float32, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil && err != io.EOF {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, 0, errors.New("empty wav buffer")
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int(1) << (bitDepth - 1))

	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 1 {
		channels = buf.Format.NumChannels
	}

	frames := len(buf.Data) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(buf.Data[i*channels+c]) / scale
		}
		out[i] = sum / float32(channels)
	}

	rate := int(dec.SampleRate)
	if rate == 0 && buf.Format != nil {
		rate = buf.Format.SampleRate
	}
	if rate == 0 {
		rate = WhisperSampleRate
	}
	return out, rate, nil
}

// ResampleLinear resamples PCM32F from inRate to outRate using linear interpolation.
func ResampleLinear(samples []float32, inRate, outRate int) []float32 {
	if inRate <= 0 || outRate <= 0 || inRate == outRate || len(samples) == 0 {
		return samples
	}
	ratio := float64(outRate) / float64(inRate)
	outLen := int(float64(len(samples)) * ratio)
	if outLen <= 1 {
		outLen = 1
	}
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) / ratio
		i0 := int(srcPos)
		if i0 >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(srcPos - float64(i0))
		s0 := samples[i0]
		s1 := samples[i0+1]
		out[i] = s0 + (s1-s0)*frac
	}
	return out
}

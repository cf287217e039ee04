// Package device drives the speaker through beep. It implements the
// engine.Output contract: one output per pooled voice, each mixing its own
// streamer graph (buffer → loop → pitch → pan → volume) into a shared mixer.
package device

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"chime/assets"
	"chime/engine"
)

// Speaker owns the audio device and the mixer every voice plays into.
type Speaker struct {
	sampleRate beep.SampleRate
	mixer      *beep.Mixer
	cache      *assets.Cache
	logger     *slog.Logger
}

// Open initializes the speaker at the given sample rate with an internal
// buffer of bufferMs milliseconds and starts the mixer.
func Open(sampleRate, bufferMs int, cache *assets.Cache) (*Speaker, error) {
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(time.Duration(bufferMs)*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}

	mixer := &beep.Mixer{}
	speaker.Play(mixer)

	return &Speaker{
		sampleRate: sr,
		mixer:      mixer,
		cache:      cache,
		logger:     slog.With("component", "device"),
	}, nil
}

// SampleRate returns the device sample rate.
func (s *Speaker) SampleRate() beep.SampleRate { return s.sampleRate }

// Factory returns the output factory the voice pool creates voices with.
func (s *Speaker) Factory() engine.OutputFactory {
	return func(kind engine.Kind) engine.Output {
		return newOutput(s)
	}
}

// Close silences and releases the audio device.
func (s *Speaker) Close() {
	speaker.Clear()
	speaker.Close()
	s.logger.Info("speaker closed")
}

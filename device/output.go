package device

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/speaker"

	"chime/engine"
)

// fadeTick is the gain-ramp step interval. Ramps progress at tick
// granularity; a fade shorter than one tick collapses to a single step.
const fadeTick = 10 * time.Millisecond

// defaultToneDuration bounds generated one-shot tones with no explicit
// duration.
const defaultToneDuration = 300 * time.Millisecond

var errNotConfigured = errors.New("output not configured")

// output is one beep-backed voice. Every Configure bumps gen; goroutines and
// stream callbacks carry the generation they were created under and no-op
// when it has moved on, so a recycled voice never observes stale events.
//
// Lock ordering: mu may be taken before speaker.Lock, never the other way
// around. Stream callbacks therefore dispatch onto fresh goroutines before
// touching mu.
type output struct {
	spk *Speaker

	mu         sync.Mutex
	gen        uint64
	ctrl       *beep.Ctrl
	vol        *effects.Volume
	target     float64 // effective gain requested by the engine
	ramp       float64 // fade progress factor in [0,1]
	fadeIn     time.Duration
	fadeOut    time.Duration
	started    bool
	fadeCancel chan struct{}
	finished   func()
}

func newOutput(spk *Speaker) *output {
	return &output{spk: spk, ramp: 1}
}

// Configure builds the streamer graph for the next playback.
func (o *output) Configure(clip *engine.Clip, gain, pitch, pan float64, delay time.Duration) error {
	source, err := o.source(clip)
	if err != nil {
		return err
	}

	if pitch != 1 {
		source = beep.ResampleRatio(4, pitch, source)
	}
	if delay > 0 {
		source = beep.Seq(beep.Silence(o.spk.sampleRate.N(delay)), source)
	}
	if pan != 0 {
		source = &effects.Pan{Streamer: source, Pan: pan}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++
	o.cancelFadeLocked()
	o.vol = &effects.Volume{Streamer: source, Base: 2}
	o.ctrl = &beep.Ctrl{Streamer: o.vol}
	o.target = gain
	o.ramp = 1
	o.fadeIn = clip.FadeIn
	o.fadeOut = clip.FadeOut
	o.started = false
	return nil
}

// source resolves the clip to a base streamer: a decoded file buffer, or a
// generated sine tone when the clip carries no file.
func (o *output) source(clip *engine.Clip) (beep.Streamer, error) {
	if clip.File != "" {
		decoded, err := o.spk.cache.Load(clip.File)
		if err != nil {
			return nil, err
		}
		base := decoded.Buffer.Streamer(0, decoded.Buffer.Len())
		var s beep.Streamer = base
		if clip.Loop {
			s = beep.Loop(-1, base)
		}
		if decoded.Format.SampleRate != o.spk.sampleRate {
			s = beep.Resample(4, decoded.Format.SampleRate, o.spk.sampleRate, s)
		}
		return s, nil
	}

	tone, err := generators.SinTone(o.spk.sampleRate, int(clip.ToneHz))
	if err != nil {
		return nil, err
	}
	if clip.Loop {
		return tone, nil
	}
	dur := clip.Duration
	if dur <= 0 {
		dur = defaultToneDuration
	}
	return beep.Take(o.spk.sampleRate.N(dur), tone), nil
}

// Start adds the configured graph to the mixer. A configured fade-in ramps
// gain from zero; audibility starts immediately either way.
func (o *output) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ctrl == nil {
		return errNotConfigured
	}
	if o.started {
		return nil
	}
	gen := o.gen

	if o.fadeIn > 0 {
		o.ramp = 0
	}
	o.applyGainLocked()

	// The callback fires inside the speaker's mixing pass; hop off that
	// goroutine before taking mu.
	final := beep.Seq(o.ctrl, beep.Callback(func() {
		go o.streamEnded(gen)
	}))
	speaker.Lock()
	o.spk.mixer.Add(final)
	speaker.Unlock()
	o.started = true

	if o.fadeIn > 0 {
		o.startFadeLocked(gen, 1, o.fadeIn, nil)
	}
	return nil
}

// Stop ends playback. Immediate stops detach the graph at once and fire no
// finished notification; faded stops ramp gain to zero over the clip's
// fade-out and then fire it. Stopping mid-fade cancels the fade.
func (o *output) Stop(immediate bool) {
	o.mu.Lock()
	if !o.started || o.ctrl == nil {
		o.gen++
		o.cancelFadeLocked()
		o.mu.Unlock()
		return
	}

	if immediate {
		o.gen++
		o.cancelFadeLocked()
		o.detachLocked()
		o.started = false
		o.mu.Unlock()
		return
	}

	gen := o.gen
	if o.fadeOut <= 0 {
		o.mu.Unlock()
		go o.fadeDone(gen)
		return
	}
	o.startFadeLocked(gen, 0, o.fadeOut, func() { o.fadeDone(gen) })
	o.mu.Unlock()
}

func (o *output) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ctrl == nil || !o.started {
		return
	}
	speaker.Lock()
	o.ctrl.Paused = true
	speaker.Unlock()
}

func (o *output) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ctrl == nil || !o.started {
		return
	}
	speaker.Lock()
	o.ctrl.Paused = false
	speaker.Unlock()
}

// SetGain retargets the effective gain. An in-flight fade keeps ramping; the
// ramp factor now scales the new target.
func (o *output) SetGain(gain float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.target = gain
	if o.started {
		o.applyGainLocked()
	}
}

func (o *output) SetFinished(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = fn
}

func (o *output) Close() {
	o.Stop(true)
}

// streamEnded handles natural end of stream. Runs on its own goroutine.
func (o *output) streamEnded(gen uint64) {
	o.mu.Lock()
	if o.gen != gen || !o.started {
		o.mu.Unlock()
		return
	}
	o.gen++
	o.cancelFadeLocked()
	o.started = false
	fn := o.finished
	o.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// fadeDone completes a faded stop: detach, then notify.
func (o *output) fadeDone(gen uint64) {
	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return
	}
	o.gen++
	o.detachLocked()
	o.started = false
	fn := o.finished
	o.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// startFadeLocked ramps o.ramp from its current value to target over dur,
// then runs then (if any). Any previous fade is cancelled first.
func (o *output) startFadeLocked(gen uint64, target float64, dur time.Duration, then func()) {
	o.cancelFadeLocked()
	cancel := make(chan struct{})
	o.fadeCancel = cancel
	from := o.ramp
	go o.runFade(gen, cancel, from, target, dur, then)
}

func (o *output) runFade(gen uint64, cancel chan struct{}, from, to float64, dur time.Duration, then func()) {
	steps := int(dur / fadeTick)
	if steps < 1 {
		steps = 1
	}
	ticker := time.NewTicker(fadeTick)
	defer ticker.Stop()
	for i := 1; i <= steps; i++ {
		select {
		case <-cancel:
			return
		case <-ticker.C:
		}
		o.mu.Lock()
		if o.gen != gen {
			o.mu.Unlock()
			return
		}
		o.ramp = from + (to-from)*float64(i)/float64(steps)
		o.applyGainLocked()
		o.mu.Unlock()
	}
	if then != nil {
		then()
	}
}

func (o *output) cancelFadeLocked() {
	if o.fadeCancel != nil {
		close(o.fadeCancel)
		o.fadeCancel = nil
	}
}

// detachLocked removes the graph from the mixer by nilling the ctrl's
// streamer; the Seq then drains on the next mixing pass.
func (o *output) detachLocked() {
	speaker.Lock()
	o.ctrl.Streamer = nil
	o.ctrl.Paused = false
	speaker.Unlock()
}

// applyGainLocked pushes target×ramp to the volume effect. effects.Volume is
// exponential in its Volume field, so linear gain maps through log2.
func (o *output) applyGainLocked() {
	if o.vol == nil {
		return
	}
	g := o.target * o.ramp
	exp, silent := volumeExponent(g)
	if o.started {
		speaker.Lock()
		defer speaker.Unlock()
	}
	o.vol.Volume = exp
	o.vol.Silent = silent
}

// volumeExponent converts a linear gain to the effects.Volume exponent for
// base 2. Non-positive gain means full silence.
func volumeExponent(gain float64) (exp float64, silent bool) {
	if gain <= 0 {
		return 0, true
	}
	return math.Log2(gain), false
}

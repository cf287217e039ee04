package engine

import (
	"errors"
	"sync"
	"time"
)

// fakeFadeDuration simulates the device-side fade on non-immediate stops.
const fakeFadeDuration = 5 * time.Millisecond

type stopCall struct {
	immediate bool
}

// fakeOutput records every engine call and simulates the device contract:
// faded stops fire the finished callback asynchronously after a short delay,
// immediate stops fire nothing. Like the real device, an immediate stop or a
// reconfigure bumps gen and cancels any pending faded-stop notification.
type fakeOutput struct {
	mu sync.Mutex

	gen   uint64
	clip  *Clip
	gain  float64
	pitch float64
	pan   float64
	delay time.Duration

	gains    []float64
	stops    []stopCall
	started  bool
	paused   bool
	closed   bool
	holdFade bool

	finished func()

	configureErr error
	startErr     error
}

func (f *fakeOutput) Configure(clip *Clip, gain, pitch, pan float64, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.configureErr != nil {
		return f.configureErr
	}
	f.gen++
	f.clip = clip
	f.gain = gain
	f.pitch = pitch
	f.pan = pan
	f.delay = delay
	f.gains = append(f.gains, gain)
	f.started = false
	f.paused = false
	return nil
}

func (f *fakeOutput) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *fakeOutput) Stop(immediate bool) {
	f.mu.Lock()
	f.stops = append(f.stops, stopCall{immediate: immediate})
	f.started = false
	if immediate {
		f.gen++
		f.mu.Unlock()
		return
	}
	gen := f.gen
	hold := f.holdFade
	f.mu.Unlock()
	if hold {
		return
	}

	go func() {
		time.Sleep(fakeFadeDuration)
		f.fireIfCurrent(gen)
	}()
}

// setHoldFade suppresses automatic delivery of faded-stop notifications so a
// test can interleave operations while a fade is still in flight.
func (f *fakeOutput) setHoldFade(hold bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holdFade = hold
}

func (f *fakeOutput) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = true
}

func (f *fakeOutput) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = false
}

func (f *fakeOutput) SetGain(gain float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gain = gain
	f.gains = append(f.gains, gain)
}

func (f *fakeOutput) SetFinished(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = fn
}

func (f *fakeOutput) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// fire invokes the current finished callback outside the fake's lock.
func (f *fakeOutput) fire() {
	f.mu.Lock()
	fn := f.finished
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// fireIfCurrent delivers a pending faded-stop notification unless a later
// immediate stop or reconfigure invalidated it.
func (f *fakeOutput) fireIfCurrent(gen uint64) {
	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		return
	}
	fn := f.finished
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// finish simulates the natural end of the clip.
func (f *fakeOutput) finish() {
	f.fire()
}

func (f *fakeOutput) currentGain() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gain
}

func (f *fakeOutput) isPaused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakeOutput) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeOutput) stopCalls() []stopCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stopCall, len(f.stops))
	copy(out, f.stops)
	return out
}

// fakeFactory hands out fakeOutputs and remembers them in creation order.
type fakeFactory struct {
	mu      sync.Mutex
	outputs []*fakeOutput
}

func (f *fakeFactory) new(kind Kind) Output {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := &fakeOutput{}
	f.outputs = append(f.outputs, o)
	return o
}

func (f *fakeFactory) output(i int) *fakeOutput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outputs[i]
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.outputs)
}

// stubCatalog is an in-memory Resolver for tests.
type stubCatalog map[string]*Clip

func (s stubCatalog) Resolve(id string) *Clip { return s[id] }

var errBroken = errors.New("broken output")

package engine

import (
	"time"

	"github.com/google/uuid"
)

// VoiceState tracks a voice through its playback lifecycle.
type VoiceState int

const (
	StateIdle VoiceState = iota // in pool
	StateInitializing           // acquired and configured, not yet audible
	StatePlaying
	StatePaused
	StateFadingOut
	StateStopped
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateInitializing: "initializing",
	StatePlaying:      "playing",
	StatePaused:       "paused",
	StateFadingOut:    "fading_out",
	StateStopped:      "stopped",
}

func (s VoiceState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Kind selects the sub-pool a voice belongs to. Buffered voices play fully
// decoded one-shots; stream voices carry long-form material (music).
type Kind int

const (
	KindBuffer Kind = iota
	KindStream

	kindCount
)

func (k Kind) String() string {
	if k == KindStream {
		return "stream"
	}
	return "buffer"
}

// KindFor returns the voice kind used for a category.
func KindFor(c Category) Kind {
	if c == Music {
		return KindStream
	}
	return KindBuffer
}

// Output is the device-layer playback resource a voice drives. Implemented
// by the beep-backed device package; faked in tests.
//
// The finished callback is the single ownership slot for end-of-playback
// notification: it is rebound on every acquire and cleared on release, so a
// recycled voice can never fire a stale subscription. Implementations must
// deliver it asynchronously (never while holding their own mixing lock).
type Output interface {
	// Configure prepares the next playback. Valid before Start only.
	Configure(clip *Clip, gain, pitch, pan float64, delay time.Duration) error
	// Start makes the configured clip audible, ramping gain over the
	// clip's fade-in when one is set.
	Start() error
	// Stop ends playback. Immediate stops cut audio and fire no finished
	// notification; faded stops ramp gain down over the clip's fade-out
	// and then fire the finished callback.
	Stop(immediate bool)
	Pause()
	Resume()
	// SetGain changes the target gain; an in-flight fade keeps ramping
	// toward the new target.
	SetGain(gain float64)
	// SetFinished binds fn as the end-of-playback callback. nil clears it.
	SetFinished(fn func())
	// Close releases the underlying device resource.
	Close()
}

// Voice is a pooled playback unit: an Output plus the engine-side lifecycle
// state. All fields are guarded by the owning coordinator; Voice methods do
// no locking of their own.
type Voice struct {
	id   uuid.UUID
	kind Kind
	out  Output

	state      VoiceState
	clip       *Clip
	category   Category
	multiplier float64
	detached   func()
}

func newVoice(kind Kind, out Output) *Voice {
	return &Voice{kind: kind, out: out, state: StateIdle, multiplier: 1}
}

// ID identifies this acquisition; regenerated every time the voice leaves
// the pool.
func (v *Voice) ID() uuid.UUID { return v.id }

func (v *Voice) Kind() Kind        { return v.kind }
func (v *Voice) State() VoiceState { return v.state }
func (v *Voice) Category() Category {
	return v.category
}

// ClipID returns the assigned clip id, or "" while idle.
func (v *Voice) ClipID() string {
	if v.clip == nil {
		return ""
	}
	return v.clip.ID
}

// active reports whether the voice counts toward IsPlaying.
func (v *Voice) active() bool {
	switch v.state {
	case StateInitializing, StatePlaying, StatePaused:
		return true
	}
	return false
}

// play transitions Initializing→Playing and starts the output. Any other
// state is a no-op.
func (v *Voice) play() error {
	if v.state != StateInitializing {
		return nil
	}
	if err := v.out.Start(); err != nil {
		return err
	}
	v.state = StatePlaying
	return nil
}

// pause is valid from Playing only; everything else is a no-op.
func (v *Voice) pause() {
	if v.state != StatePlaying {
		return
	}
	v.out.Pause()
	v.state = StatePaused
}

// resume is valid from Paused only.
func (v *Voice) resume() {
	if v.state != StatePaused {
		return
	}
	v.out.Resume()
	v.state = StatePlaying
}

// stop drives the voice toward Stopped. A faded stop parks the voice in
// FadingOut until the output fires its finished callback; an immediate stop
// (also used to cancel an in-flight fade) lands in Stopped at once.
func (v *Voice) stop(immediate bool) {
	switch v.state {
	case StateIdle, StateStopped:
		return
	case StateFadingOut:
		if !immediate {
			return
		}
	}
	if immediate || v.state == StateInitializing {
		v.out.Stop(true)
		v.state = StateStopped
		return
	}
	v.out.Stop(false)
	v.state = StateFadingOut
}

// onDetach registers fn to run when the coordinator detaches the voice,
// whatever winds it down: natural completion, a faded stop, an immediate
// stop or teardown. Hooks stack and fire exactly once.
func (v *Voice) onDetach(fn func()) {
	prev := v.detached
	if prev == nil {
		v.detached = fn
		return
	}
	v.detached = func() {
		prev()
		fn()
	}
}

// reset clears all per-playback fields before the voice re-enters the pool.
func (v *Voice) reset() {
	v.out.SetFinished(nil)
	v.id = uuid.Nil
	v.state = StateIdle
	v.clip = nil
	v.category = 0
	v.multiplier = 1
	v.detached = nil
}

// rearm prepares a voice leaving the pool for a fresh playback.
func (v *Voice) rearm() {
	v.id = uuid.New()
	v.state = StateInitializing
	v.multiplier = 1
}

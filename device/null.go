package device

import (
	"sync"
	"time"

	"chime/engine"
)

// nullOutput satisfies engine.Output without an audio device. One-shots
// "finish" after the clip's nominal duration; loops run until stopped. Used
// for headless runs and the demo's --silent mode.
type nullOutput struct {
	mu        sync.Mutex
	clip      *engine.Clip
	gen       uint64
	timer     *time.Timer
	startedAt time.Time
	remaining time.Duration
	paused    bool
	finished  func()
}

// NewNullFactory returns an output factory producing silent voices.
func NewNullFactory() engine.OutputFactory {
	return func(kind engine.Kind) engine.Output {
		return &nullOutput{}
	}
}

func (n *nullOutput) Configure(clip *engine.Clip, gain, pitch, pan float64, delay time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gen++
	n.stopTimerLocked()
	n.clip = clip
	n.remaining = n.nominalDuration(clip) + delay
	n.paused = false
	return nil
}

func (n *nullOutput) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.clip == nil {
		return errNotConfigured
	}
	if n.clip.Loop {
		return nil
	}
	n.armTimerLocked()
	return nil
}

func (n *nullOutput) Stop(immediate bool) {
	n.mu.Lock()
	n.gen++
	n.stopTimerLocked()
	fadeOut := time.Duration(0)
	if !immediate && n.clip != nil {
		fadeOut = n.clip.FadeOut
	}
	fn := n.finished
	n.clip = nil
	n.mu.Unlock()

	if immediate || fn == nil {
		return
	}
	// Simulated fade-out, then the finished notification.
	time.AfterFunc(fadeOut, fn)
}

func (n *nullOutput) Pause() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.paused || n.clip == nil {
		return
	}
	n.paused = true
	if n.timer != nil {
		n.stopTimerLocked()
		n.remaining -= time.Since(n.startedAt)
		if n.remaining < 0 {
			n.remaining = 0
		}
	}
}

func (n *nullOutput) Resume() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.paused || n.clip == nil {
		return
	}
	n.paused = false
	if !n.clip.Loop {
		n.armTimerLocked()
	}
}

func (n *nullOutput) SetGain(gain float64) {}

func (n *nullOutput) SetFinished(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = fn
}

func (n *nullOutput) Close() {
	n.Stop(true)
}

func (n *nullOutput) armTimerLocked() {
	gen := n.gen
	n.startedAt = time.Now()
	n.timer = time.AfterFunc(n.remaining, func() {
		n.mu.Lock()
		if n.gen != gen {
			n.mu.Unlock()
			return
		}
		fn := n.finished
		n.clip = nil
		n.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

func (n *nullOutput) stopTimerLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *nullOutput) nominalDuration(clip *engine.Clip) time.Duration {
	if clip.Duration > 0 {
		return clip.Duration
	}
	return defaultToneDuration
}

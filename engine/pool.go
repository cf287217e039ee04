package engine

import "log/slog"

// OutputFactory creates the device resource backing a new voice.
type OutputFactory func(kind Kind) Output

// VoicePool is a bounded registry of reusable voices, partitioned by kind.
// It only reports exhaustion; deciding what to evict when full is the
// coordinator's job. The pool is guarded by the coordinator's lock and does
// no locking of its own.
type VoicePool struct {
	factory OutputFactory
	max     [kindCount]int
	idle    [kindCount][]*Voice
	live    [kindCount]int
	logger  *slog.Logger
}

// NewVoicePool creates a pool producing at most maxBuffer buffered voices
// and maxStream stream voices.
func NewVoicePool(factory OutputFactory, maxBuffer, maxStream int) *VoicePool {
	p := &VoicePool{
		factory: factory,
		logger:  slog.With("component", "voicepool"),
	}
	p.max[KindBuffer] = maxBuffer
	p.max[KindStream] = maxStream
	return p
}

// Acquire returns a rearmed voice of the requested kind, creating one if the
// pool is below its cap. Returns nil on exhaustion; that is a normal
// condition under load, not an error.
func (p *VoicePool) Acquire(kind Kind) *Voice {
	if q := p.idle[kind]; len(q) > 0 {
		v := q[0]
		p.idle[kind] = q[1:]
		v.rearm()
		return v
	}
	if p.live[kind] >= p.max[kind] {
		return nil
	}
	v := newVoice(kind, p.factory(kind))
	p.live[kind]++
	v.rearm()
	p.logger.Debug("created voice", "kind", kind.String(), "live", p.live[kind])
	return v
}

// Release resets a voice's transient playback state and returns it to the
// idle queue for its kind. The underlying output is kept alive for reuse.
func (p *VoicePool) Release(v *Voice) {
	if v == nil {
		return
	}
	if v.state != StateStopped && v.state != StateInitializing {
		v.out.Stop(true)
	}
	v.reset()
	p.idle[v.kind] = append(p.idle[v.kind], v)
}

// Prewarm creates up to count idle voices of the given kind ahead of demand,
// never exceeding the pool cap.
func (p *VoicePool) Prewarm(kind Kind, count int) {
	for i := 0; i < count && p.live[kind] < p.max[kind]; i++ {
		v := newVoice(kind, p.factory(kind))
		p.live[kind]++
		p.idle[kind] = append(p.idle[kind], v)
	}
	p.logger.Debug("prewarmed pool", "kind", kind.String(), "idle", len(p.idle[kind]))
}

// Size returns how many voices of the kind currently exist, idle or active.
func (p *VoicePool) Size(kind Kind) int { return p.live[kind] }

// Idle returns how many voices of the kind are waiting in the pool.
func (p *VoicePool) Idle(kind Kind) int { return len(p.idle[kind]) }

// ClearAll destroys every idle voice and forgets them. Voices still active
// must be stopped and released before teardown; the coordinator's Close does
// that.
func (p *VoicePool) ClearAll() {
	for k := Kind(0); k < kindCount; k++ {
		for _, v := range p.idle[k] {
			v.out.Close()
			p.live[k]--
		}
		p.idle[k] = nil
	}
}

// Package engine implements a real-time audio playback engine: logical
// play/stop requests are resolved against per-category policy, backed by a
// bounded pool of reusable device voices, with fade envelopes and music
// crossfading handled by a single coordinator.
package engine

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Events carries the engine's optional change notifications. Nil fields are
// skipped. Callbacks are invoked outside the engine lock but must not block;
// they may be delivered from playback goroutines.
type Events struct {
	Started               func(clipID string, category Category)
	Stopped               func(clipID string, category Category)
	CategoryVolumeChanged func(category Category, volume float64)
	MasterVolumeChanged   func(volume float64)
}

// PlayOptions tunes a single playback request.
type PlayOptions struct {
	// Multiplier scales the clip's default volume; values <= 0 mean 1.
	Multiplier float64
	// Pan overrides the clip's stereo position when set.
	Pan *float64
}

// MusicOptions tunes a music request.
type MusicOptions struct {
	// Multiplier scales the clip's default volume; values <= 0 mean 1.
	Multiplier float64
	// CrossFade fades the outgoing track out while the new one fades in.
	// Without it the old track is cut before the new one starts.
	CrossFade bool
}

// Engine is the playback coordinator: the single owner of the voice pool,
// the active-voice index, the category policy and the current-music slot.
// All methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex
	// musicMu serializes music operations so a crossfade's join completes
	// before the next PlayMusic is admitted. Always taken before mu.
	musicMu sync.Mutex

	catalog Resolver
	pool    *VoicePool
	policy  *Policy
	index   activeIndex
	music   *Voice
	events  Events
	logger  *slog.Logger
	rand    func() float64
	closed  bool
}

// New creates an engine over the given catalog and pool. A nil policy gets
// NewPolicy defaults.
func New(catalog Resolver, pool *VoicePool, policy *Policy, events Events) *Engine {
	if policy == nil {
		policy = NewPolicy()
	}
	return &Engine{
		catalog: catalog,
		pool:    pool,
		policy:  policy,
		events:  events,
		logger:  slog.With("component", "engine"),
		rand:    rand.Float64,
	}
}

// stoppedInfo defers a Stopped notification until the lock is dropped.
type stoppedInfo struct {
	clipID   string
	category Category
}

// Play starts a one-shot or looping clip under its category's policy.
// Returns false when the request is refused (unknown clip, muted category,
// duplicate suppressed, pool exhausted); the reason is logged. Music clips
// are delegated to PlayMusic with crossfade.
func (e *Engine) Play(clipID string, opts PlayOptions) bool {
	clip := e.lookup(clipID)
	if clip == nil {
		return false
	}
	if clip.Category == Music {
		return e.PlayMusic(clipID, MusicOptions{Multiplier: opts.Multiplier, CrossFade: true})
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.logger.Error("play refused", "clip", clipID, "error", ErrNotConfigured)
		return false
	}
	cat := clip.Category
	if e.policy.Muted(cat) {
		e.mu.Unlock()
		e.logger.Debug("play skipped", "clip", clipID, "category", cat.String(), "reason", ErrCategoryMuted)
		return false
	}

	// Over the concurrency cap the oldest voice in the category is evicted
	// first. A full count with no candidate is tolerated and admission
	// proceeds.
	var evicted []stoppedInfo
	if max := e.policy.MaxVoices(cat); max > 0 && e.index.count(cat) >= max {
		if old := e.index.oldest(cat); old != nil {
			evicted = append(evicted, e.stopNowLocked(old))
		}
	}

	if !e.policy.AllowsDuplicates(cat) && e.index.findClip(cat, clipID) != nil {
		e.mu.Unlock()
		e.emitStopped(evicted)
		e.logger.Debug("play skipped", "clip", clipID, "category", cat.String(), "reason", ErrDuplicateSuppressed)
		return false
	}

	v := e.pool.Acquire(KindFor(cat))
	if v == nil {
		e.mu.Unlock()
		e.emitStopped(evicted)
		e.logger.Warn("play failed", "clip", clipID, "category", cat.String(), "error", ErrPoolExhausted)
		return false
	}
	if err := e.configureLocked(v, clip, opts.Multiplier, opts.Pan); err != nil {
		v.state = StateStopped
		e.pool.Release(v)
		e.mu.Unlock()
		e.emitStopped(evicted)
		e.logger.Error("voice configuration failed", "clip", clipID, "error", err)
		return false
	}
	e.index.add(v)
	if err := v.play(); err != nil {
		e.index.remove(v)
		v.state = StateStopped
		e.pool.Release(v)
		e.mu.Unlock()
		e.emitStopped(evicted)
		e.logger.Error("voice start failed", "clip", clipID, "error", err)
		return false
	}
	e.mu.Unlock()

	e.emitStopped(evicted)
	e.emitStarted(clipID, cat)
	e.logger.Debug("playing", "clip", clipID, "category", cat.String(), "voice", v.ID())
	return true
}

// PlayMusic starts a music track in the single current-music slot. Requesting
// the track that is already current and playing is a no-op success. With
// CrossFade the outgoing track fades out while the new one fades in; the call
// returns once both have completed, and a concurrent PlayMusic waits for that
// join before it is admitted.
func (e *Engine) PlayMusic(clipID string, opts MusicOptions) bool {
	clip := e.lookup(clipID)
	if clip == nil {
		return false
	}
	if clip.Category != Music {
		e.logger.Error("music request refused", "clip", clipID, "category", clip.Category.String())
		return false
	}

	e.musicMu.Lock()
	defer e.musicMu.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.logger.Error("music refused", "clip", clipID, "error", ErrNotConfigured)
		return false
	}
	if e.music != nil && e.music.ClipID() == clipID && e.music.State() == StatePlaying {
		e.mu.Unlock()
		return true
	}
	if e.policy.Muted(Music) {
		e.mu.Unlock()
		e.logger.Debug("music skipped", "clip", clipID, "reason", ErrCategoryMuted)
		return false
	}

	v := e.pool.Acquire(KindStream)
	if v == nil {
		e.mu.Unlock()
		e.logger.Warn("music failed", "clip", clipID, "error", ErrPoolExhausted)
		return false
	}
	if err := e.configureLocked(v, clip, opts.Multiplier, nil); err != nil {
		v.state = StateStopped
		e.pool.Release(v)
		e.mu.Unlock()
		e.logger.Error("voice configuration failed", "clip", clipID, "error", err)
		return false
	}

	old := e.music
	crossfade := opts.CrossFade && old != nil && old.State() == StatePlaying

	// The slot is replaced before the old voice winds down, so there is
	// never a window with zero or two current tracks.
	e.music = v
	e.index.add(v)

	if !crossfade {
		var infos []stoppedInfo
		if old != nil {
			infos = append(infos, e.stopNowLocked(old))
		}
		if err := v.play(); err != nil {
			e.detachLocked(v)
			e.mu.Unlock()
			e.emitStopped(infos)
			e.logger.Error("voice start failed", "clip", clipID, "error", err)
			return false
		}
		e.mu.Unlock()
		e.emitStopped(infos)
		e.emitStarted(clipID, Music)
		return true
	}

	// Crossfade: fade-out of the old track and fade-in of the new run as
	// two tasks joined here. Either may finish first. The fade-out task
	// completes on detach rather than on the device's finished callback:
	// an immediate Stop, StopAll or Close landing mid-fade cancels that
	// callback, but every wind-down path detaches.
	var join sync.WaitGroup
	join.Add(2)
	old.onDetach(join.Done)
	old.stop(false)

	fadeIn := clip.FadeIn
	if err := v.play(); err != nil {
		e.detachLocked(v)
		e.music = nil
		e.mu.Unlock()
		join.Done() // fade-in task never runs
		join.Wait()
		e.logger.Error("voice start failed", "clip", clipID, "error", err)
		return false
	}
	e.mu.Unlock()

	go func() {
		time.Sleep(fadeIn)
		join.Done()
	}()

	e.emitStarted(clipID, Music)
	join.Wait()
	return true
}

// Stop ends every active playback of the clip. Immediate stops cut audio at
// once; otherwise voices fade out over their clip's fade-out duration.
func (e *Engine) Stop(clipID string, immediate bool) {
	e.mu.Lock()
	var infos []stoppedInfo
	for _, c := range Categories() {
		for _, v := range e.index.all(c) {
			if v.ClipID() != clipID {
				continue
			}
			if immediate || v.State() == StateInitializing {
				infos = append(infos, e.stopNowLocked(v))
			} else {
				v.stop(false)
			}
		}
	}
	e.mu.Unlock()
	e.emitStopped(infos)
}

// StopAll stops every active voice in the given categories (all categories
// when none are given). Faded stops are issued concurrently and the call
// returns once every voice has wound down; one voice failing to stop does
// not hold up the others.
func (e *Engine) StopAll(immediate bool, cats ...Category) {
	e.mu.Lock()
	voices := e.index.snapshot(cats...)
	var infos []stoppedInfo
	var join sync.WaitGroup
	for _, v := range voices {
		switch v.State() {
		case StateInitializing:
			// Never audible; no fade to wait for.
			infos = append(infos, e.stopNowLocked(v))
		case StatePlaying, StatePaused, StateFadingOut:
			if immediate {
				infos = append(infos, e.stopNowLocked(v))
				continue
			}
			join.Add(1)
			v.onDetach(join.Done)
			v.stop(false)
		}
	}
	e.mu.Unlock()
	e.emitStopped(infos)
	join.Wait()
}

// Pause suspends every active playback of the clip. Pausing a voice that is
// not playing is a no-op.
func (e *Engine) Pause(clipID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, v := range e.index.snapshot() {
		if v.ClipID() == clipID {
			v.pause()
		}
	}
}

// Resume restarts every paused playback of the clip.
func (e *Engine) Resume(clipID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, v := range e.index.snapshot() {
		if v.ClipID() == clipID {
			v.resume()
		}
	}
}

// PauseAll pauses every playing voice in the given categories (all when none
// are given). Index membership is unchanged.
func (e *Engine) PauseAll(cats ...Category) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, v := range e.index.snapshot(cats...) {
		v.pause()
	}
}

// ResumeAll resumes every paused voice in the given categories.
func (e *Engine) ResumeAll(cats ...Category) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, v := range e.index.snapshot(cats...) {
		v.resume()
	}
}

// IsPlaying reports whether any active voice is assigned the clip. Voices
// that are fading out after a stop no longer count.
func (e *Engine) IsPlaying(clipID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, v := range e.index.snapshot() {
		if v.ClipID() == clipID && v.active() {
			return true
		}
	}
	return false
}

// ActiveCount returns the number of active voices in the given categories,
// or across the whole engine when none are given.
func (e *Engine) ActiveCount(cats ...Category) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(cats) == 0 {
		return e.index.total()
	}
	n := 0
	for _, c := range cats {
		n += e.index.count(c)
	}
	return n
}

// CurrentMusic returns the clip id held by the music slot, or "".
func (e *Engine) CurrentMusic() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.music == nil {
		return ""
	}
	return e.music.ClipID()
}

// SetCategoryVolume clamps and stores the category volume and pushes the new
// effective gain to every active voice in the category before returning.
func (e *Engine) SetCategoryVolume(c Category, volume float64) {
	e.mu.Lock()
	e.policy.SetCategoryVolume(c, volume)
	e.refreshGainsLocked(c)
	volume = e.policy.CategoryVolume(c)
	e.mu.Unlock()
	if e.events.CategoryVolumeChanged != nil {
		e.events.CategoryVolumeChanged(c, volume)
	}
}

// SetCategoryMuted mutes or unmutes a category, driving every active voice in
// it to its new effective gain synchronously.
func (e *Engine) SetCategoryMuted(c Category, muted bool) {
	e.mu.Lock()
	e.policy.SetCategoryMuted(c, muted)
	e.refreshGainsLocked(c)
	volume := e.policy.CategoryVolume(c)
	e.mu.Unlock()
	if e.events.CategoryVolumeChanged != nil {
		e.events.CategoryVolumeChanged(c, volume)
	}
}

// SetCategoryPolicy replaces a category's whole policy block and refreshes
// affected voices.
func (e *Engine) SetCategoryPolicy(c Category, cfg CategoryConfig) {
	e.mu.Lock()
	e.policy.SetCategory(c, cfg)
	e.refreshGainsLocked(c)
	volume := e.policy.CategoryVolume(c)
	e.mu.Unlock()
	if e.events.CategoryVolumeChanged != nil {
		e.events.CategoryVolumeChanged(c, volume)
	}
}

// SetMasterVolume clamps and stores the master volume and pushes new gains to
// every active voice.
func (e *Engine) SetMasterVolume(volume float64) {
	e.mu.Lock()
	e.policy.SetMasterVolume(volume)
	e.refreshAllGainsLocked()
	volume = e.policy.MasterVolume()
	e.mu.Unlock()
	if e.events.MasterVolumeChanged != nil {
		e.events.MasterVolumeChanged(volume)
	}
}

// SetMasterMuted mutes or unmutes everything.
func (e *Engine) SetMasterMuted(muted bool) {
	e.mu.Lock()
	e.policy.SetMasterMuted(muted)
	e.refreshAllGainsLocked()
	volume := e.policy.MasterVolume()
	e.mu.Unlock()
	if e.events.MasterVolumeChanged != nil {
		e.events.MasterVolumeChanged(volume)
	}
}

func (e *Engine) CategoryVolume(c Category) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policy.CategoryVolume(c)
}

func (e *Engine) CategoryMuted(c Category) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policy.Category(c).Muted
}

func (e *Engine) MasterVolume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policy.MasterVolume()
}

func (e *Engine) MasterMuted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policy.MasterMuted()
}

// Close stops everything immediately, releases all voices and tears the pool
// down. The engine refuses further requests afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for _, v := range e.index.snapshot() {
		e.stopNowLocked(v)
	}
	e.music = nil
	e.pool.ClearAll()
	e.mu.Unlock()
	e.logger.Info("engine closed")
}

// lookup resolves a clip id, logging the failure taxonomy on miss.
func (e *Engine) lookup(clipID string) *Clip {
	if e.catalog == nil {
		e.logger.Error("request failed", "clip", clipID, "error", ErrNotConfigured)
		return nil
	}
	clip := e.catalog.Resolve(clipID)
	if clip == nil {
		e.logger.Error("request failed", "clip", clipID, "error", ErrClipNotFound)
	}
	return clip
}

// configureLocked assigns the clip to the voice, computes the effective gain
// and binds the finished callback for this acquisition.
func (e *Engine) configureLocked(v *Voice, clip *Clip, multiplier float64, pan *float64) error {
	if multiplier <= 0 {
		multiplier = 1
	}
	v.clip = clip
	v.category = clip.Category
	v.multiplier = multiplier

	gain := e.policy.EffectiveGain(clip.Category, clip.Volume, multiplier)
	pitch := clip.Pitch
	if pitch <= 0 {
		pitch = 1
	}
	p := clip.Pan
	if pan != nil {
		p = *pan
	}
	if err := v.out.Configure(clip, gain, pitch, p, e.startDelay(clip)); err != nil {
		return err
	}
	id := v.ID()
	v.out.SetFinished(func() { e.handleFinished(v, id) })
	return nil
}

// handleFinished is the natural-completion path: the device reports the voice
// done, the coordinator detaches and recycles it. id guards against a stale
// notification reaching a recycled voice.
func (e *Engine) handleFinished(v *Voice, id uuid.UUID) {
	e.mu.Lock()
	if e.closed || v.ID() != id || v.State() == StateStopped || v.State() == StateIdle {
		e.mu.Unlock()
		return
	}
	v.state = StateStopped
	info := e.detachLocked(v)
	e.mu.Unlock()
	e.emitStopped([]stoppedInfo{info})
}

// stopNowLocked cuts a voice immediately and recycles it. Used for eviction,
// immediate stops and teardown.
func (e *Engine) stopNowLocked(v *Voice) stoppedInfo {
	v.stop(true)
	return e.detachLocked(v)
}

// detachLocked removes the voice from the index, clears the music slot if it
// held it, fires the detach hooks and returns the voice to the pool. Every
// wind-down path funnels through here, so hooks fire no matter how the voice
// ended.
func (e *Engine) detachLocked(v *Voice) stoppedInfo {
	info := stoppedInfo{clipID: v.ClipID(), category: v.Category()}
	e.index.remove(v)
	if e.music == v {
		e.music = nil
	}
	if fn := v.detached; fn != nil {
		v.detached = nil
		fn()
	}
	e.pool.Release(v)
	return info
}

// refreshGainsLocked pushes the current effective gain to every active voice
// in the category.
func (e *Engine) refreshGainsLocked(c Category) {
	for _, v := range e.index.all(c) {
		if v.clip == nil {
			continue
		}
		v.out.SetGain(e.policy.EffectiveGain(c, v.clip.Volume, v.multiplier))
	}
}

func (e *Engine) refreshAllGainsLocked() {
	for _, c := range Categories() {
		e.refreshGainsLocked(c)
	}
}

// startDelay picks a uniform random delay in the clip's configured bounds.
func (e *Engine) startDelay(clip *Clip) time.Duration {
	min, max := clip.MinStartDelay, clip.MaxStartDelay
	if min < 0 {
		min = 0
	}
	if max <= min {
		return min
	}
	return min + time.Duration(e.rand()*float64(max-min))
}

func (e *Engine) emitStarted(clipID string, c Category) {
	if e.events.Started != nil {
		e.events.Started(clipID, c)
	}
}

func (e *Engine) emitStopped(infos []stoppedInfo) {
	if e.events.Stopped == nil {
		return
	}
	for _, info := range infos {
		e.events.Stopped(info.clipID, info.category)
	}
}

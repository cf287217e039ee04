package engine

// CategoryConfig is the per-category playback policy.
type CategoryConfig struct {
	Volume float64 // [0,1]
	Muted  bool
	// MaxVoices caps simultaneously active voices in the category;
	// 0 disables enforcement.
	MaxVoices       int
	AllowDuplicates bool
}

// Policy holds the per-category and master volume/mute state consulted by
// every playback decision. Pure state: pushing gain changes to active voices
// is the coordinator's job, which does so synchronously from its setters.
type Policy struct {
	categories   [categoryCount]CategoryConfig
	masterVolume float64
	masterMuted  bool
}

// NewPolicy returns a policy with every category at full volume, unmuted,
// unlimited and duplicate-tolerant.
func NewPolicy() *Policy {
	p := &Policy{masterVolume: 1}
	for c := range p.categories {
		p.categories[c] = CategoryConfig{Volume: 1, AllowDuplicates: true}
	}
	return p
}

// SetCategory replaces the whole policy block for a category.
func (p *Policy) SetCategory(c Category, cfg CategoryConfig) {
	cfg.Volume = clamp01(cfg.Volume)
	if cfg.MaxVoices < 0 {
		cfg.MaxVoices = 0
	}
	p.categories[c] = cfg
}

// Category returns the current policy block for a category.
func (p *Policy) Category(c Category) CategoryConfig { return p.categories[c] }

// SetCategoryVolume clamps v to [0,1] and stores it.
func (p *Policy) SetCategoryVolume(c Category, v float64) {
	p.categories[c].Volume = clamp01(v)
}

func (p *Policy) SetCategoryMuted(c Category, muted bool) {
	p.categories[c].Muted = muted
}

// SetMasterVolume clamps v to [0,1] and stores it.
func (p *Policy) SetMasterVolume(v float64) { p.masterVolume = clamp01(v) }

func (p *Policy) SetMasterMuted(muted bool) { p.masterMuted = muted }

func (p *Policy) CategoryVolume(c Category) float64 { return p.categories[c].Volume }
func (p *Policy) MasterVolume() float64             { return p.masterVolume }
func (p *Policy) MasterMuted() bool                 { return p.masterMuted }

// Muted reports whether playback in the category is silenced by policy,
// either by the category itself or by the master channel.
func (p *Policy) Muted(c Category) bool {
	return p.masterMuted || p.categories[c].Muted
}

// MaxVoices returns the concurrency cap for the category; 0 means unlimited.
func (p *Policy) MaxVoices(c Category) int { return p.categories[c].MaxVoices }

// AllowsDuplicates reports whether the same clip may be active twice in the
// category.
func (p *Policy) AllowsDuplicates(c Category) bool { return p.categories[c].AllowDuplicates }

// EffectiveGain combines clip volume, the caller's multiplier, category
// volume and master volume. Zero whenever the category or master is muted.
func (p *Policy) EffectiveGain(c Category, clipVolume, multiplier float64) float64 {
	if p.Muted(c) {
		return 0
	}
	return clamp01(clipVolume) * multiplier * p.categories[c].Volume * p.masterVolume
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package engine

import (
	"math"
	"testing"
)

func TestPolicyEffectiveGain(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*Policy)
		category   Category
		clipVolume float64
		multiplier float64
		want       float64
	}{
		{
			name:       "defaults multiply through",
			setup:      func(p *Policy) {},
			category:   SFX,
			clipVolume: 1, multiplier: 1,
			want: 1,
		},
		{
			name: "full algebra",
			setup: func(p *Policy) {
				p.SetCategoryVolume(SFX, 0.5)
				p.SetMasterVolume(0.5)
			},
			category:   SFX,
			clipVolume: 0.8, multiplier: 0.5,
			want: 0.8 * 0.5 * 0.5 * 0.5,
		},
		{
			name:       "category muted is zero",
			setup:      func(p *Policy) { p.SetCategoryMuted(UI, true) },
			category:   UI,
			clipVolume: 1, multiplier: 1,
			want: 0,
		},
		{
			name:       "master muted is zero",
			setup:      func(p *Policy) { p.SetMasterMuted(true) },
			category:   Music,
			clipVolume: 1, multiplier: 1,
			want: 0,
		},
		{
			name:       "clip volume above one is clamped",
			setup:      func(p *Policy) {},
			category:   SFX,
			clipVolume: 2, multiplier: 1,
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolicy()
			tt.setup(p)
			got := p.EffectiveGain(tt.category, tt.clipVolume, tt.multiplier)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("EffectiveGain() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPolicyClamping(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"negative clamps to zero", -1, 0},
		{"above one clamps to one", 1.5, 1},
		{"in range passes through", 0.7, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolicy()
			p.SetMasterVolume(tt.in)
			if got := p.MasterVolume(); got != tt.want {
				t.Errorf("SetMasterVolume(%v): got %v, want %v", tt.in, got, tt.want)
			}
			p.SetCategoryVolume(Ambient, tt.in)
			if got := p.CategoryVolume(Ambient); got != tt.want {
				t.Errorf("SetCategoryVolume(%v): got %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPolicyMutedCombines(t *testing.T) {
	p := NewPolicy()
	if p.Muted(SFX) {
		t.Fatal("fresh policy must not be muted")
	}
	p.SetCategoryMuted(SFX, true)
	if !p.Muted(SFX) {
		t.Error("category mute must silence the category")
	}
	if p.Muted(UI) {
		t.Error("category mute must not leak to other categories")
	}
	p.SetCategoryMuted(SFX, false)
	p.SetMasterMuted(true)
	if !p.Muted(SFX) || !p.Muted(UI) {
		t.Error("master mute must silence every category")
	}
}

func TestPolicySetCategorySanitizes(t *testing.T) {
	p := NewPolicy()
	p.SetCategory(Speech, CategoryConfig{Volume: 7, MaxVoices: -3})
	cfg := p.Category(Speech)
	if cfg.Volume != 1 {
		t.Errorf("volume not clamped: %v", cfg.Volume)
	}
	if cfg.MaxVoices != 0 {
		t.Errorf("negative max voices not normalized: %v", cfg.MaxVoices)
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		parsed, err := ParseCategory(c.String())
		if err != nil {
			t.Fatalf("ParseCategory(%q): %v", c.String(), err)
		}
		if parsed != c {
			t.Errorf("ParseCategory(%q) = %v, want %v", c.String(), parsed, c)
		}
	}
	if _, err := ParseCategory("drums"); err == nil {
		t.Error("unknown category must not parse")
	}
}

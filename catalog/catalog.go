// Package catalog loads the static clip catalog the engine resolves play
// requests against. Entries are read once from a YAML file and never mutated
// afterwards.
package catalog

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"chime/engine"
)

// clipSpec mirrors one entry of the catalog file.
type clipSpec struct {
	ID            string        `mapstructure:"id"`
	File          string        `mapstructure:"file"`
	Category      string        `mapstructure:"category"`
	ToneHz        float64       `mapstructure:"tone_hz"`
	Duration      time.Duration `mapstructure:"duration"`
	Volume        *float64      `mapstructure:"volume"`
	Pitch         float64       `mapstructure:"pitch"`
	Pan           float64       `mapstructure:"pan"`
	Loop          bool          `mapstructure:"loop"`
	FadeIn        time.Duration `mapstructure:"fade_in"`
	FadeOut       time.Duration `mapstructure:"fade_out"`
	MinStartDelay time.Duration `mapstructure:"min_start_delay"`
	MaxStartDelay time.Duration `mapstructure:"max_start_delay"`
}

// Catalog is an immutable id → clip lookup.
type Catalog struct {
	clips map[string]*engine.Clip
	order []string
}

// Load reads a catalog file. The file holds a single `clips` list; see
// catalog.yaml for the entry shape.
func Load(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var specs []clipSpec
	if err := v.UnmarshalKey("clips", &specs); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	cat, err := fromSpecs(specs)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	slog.Info("catalog loaded", slog.String("file", path), slog.Int("clips", cat.Len()))
	return cat, nil
}

// New builds a catalog from already-constructed clips, mainly for tests and
// programmatic setups.
func New(clips ...engine.Clip) (*Catalog, error) {
	cat := &Catalog{clips: make(map[string]*engine.Clip, len(clips))}
	for i := range clips {
		clip := clips[i]
		if err := validate(&clip); err != nil {
			return nil, err
		}
		if _, dup := cat.clips[clip.ID]; dup {
			return nil, fmt.Errorf("duplicate clip id %q", clip.ID)
		}
		cat.clips[clip.ID] = &clip
		cat.order = append(cat.order, clip.ID)
	}
	return cat, nil
}

func fromSpecs(specs []clipSpec) (*Catalog, error) {
	clips := make([]engine.Clip, 0, len(specs))
	for _, s := range specs {
		c, err := engine.ParseCategory(s.Category)
		if err != nil {
			return nil, fmt.Errorf("clip %q: %w", s.ID, err)
		}
		volume := 1.0
		if s.Volume != nil {
			volume = *s.Volume
		}
		pitch := s.Pitch
		if pitch == 0 {
			pitch = 1
		}
		clips = append(clips, engine.Clip{
			ID:            s.ID,
			Category:      c,
			File:          s.File,
			ToneHz:        s.ToneHz,
			Duration:      s.Duration,
			Volume:        volume,
			Pitch:         pitch,
			Pan:           s.Pan,
			Loop:          s.Loop,
			FadeIn:        s.FadeIn,
			FadeOut:       s.FadeOut,
			MinStartDelay: s.MinStartDelay,
			MaxStartDelay: s.MaxStartDelay,
		})
	}
	return New(clips...)
}

func validate(clip *engine.Clip) error {
	if clip.ID == "" {
		return fmt.Errorf("clip with empty id")
	}
	if !clip.Category.Valid() {
		return fmt.Errorf("clip %q: invalid category", clip.ID)
	}
	if clip.Volume < 0 || clip.Volume > 1 {
		return fmt.Errorf("clip %q: volume %v outside [0,1]", clip.ID, clip.Volume)
	}
	if clip.Pitch <= 0 {
		return fmt.Errorf("clip %q: pitch must be positive", clip.ID)
	}
	if clip.Pan < -1 || clip.Pan > 1 {
		return fmt.Errorf("clip %q: pan %v outside [-1,1]", clip.ID, clip.Pan)
	}
	if clip.MinStartDelay < 0 || clip.MaxStartDelay < 0 {
		return fmt.Errorf("clip %q: negative start delay", clip.ID)
	}
	if clip.MaxStartDelay > 0 && clip.MaxStartDelay < clip.MinStartDelay {
		return fmt.Errorf("clip %q: max start delay below min", clip.ID)
	}
	if clip.File == "" && clip.ToneHz <= 0 {
		return fmt.Errorf("clip %q: needs a file or a tone frequency", clip.ID)
	}
	return nil
}

// Resolve returns the descriptor for id, or nil if unknown. Implements
// engine.Resolver.
func (c *Catalog) Resolve(id string) *engine.Clip {
	return c.clips[id]
}

// Len returns the number of clips.
func (c *Catalog) Len() int { return len(c.clips) }

// IDs returns clip ids in file order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

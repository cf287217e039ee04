package engine

import "time"

// Clip is an immutable catalog entry describing how a logical sound is
// played. The engine looks clips up by id and never mutates them.
type Clip struct {
	ID       string
	Category Category

	// File is the audio asset path. When empty the output layer falls back
	// to a generated tone of ToneHz for Duration.
	File     string
	ToneHz   float64
	Duration time.Duration

	Volume float64 // default gain in [0,1]
	Pitch  float64 // playback speed ratio, 1 = unchanged
	Pan    float64 // stereo position in [-1,1]
	Loop   bool

	FadeIn  time.Duration
	FadeOut time.Duration

	// Random start delay bounds. The engine picks a delay uniformly in
	// [MinStartDelay, MaxStartDelay] on every play.
	MinStartDelay time.Duration
	MaxStartDelay time.Duration
}

// Resolver is the read-only clip catalog the engine consumes.
type Resolver interface {
	// Resolve returns the descriptor for id, or nil if unknown.
	Resolve(id string) *Clip
}

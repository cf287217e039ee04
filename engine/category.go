package engine

import "fmt"

// Category is a logical playback channel with its own volume, mute and
// concurrency policy. The set is closed; policy and active-voice state are
// held in fixed-size arrays indexed by Category.
type Category int

const (
	Music Category = iota
	SFX
	UI
	Speech
	Ambient

	categoryCount
)

var categoryNames = [categoryCount]string{
	Music:   "music",
	SFX:     "sfx",
	UI:      "ui",
	Speech:  "speech",
	Ambient: "ambient",
}

// Categories returns all categories in declaration order.
func Categories() []Category {
	cats := make([]Category, 0, categoryCount)
	for c := Category(0); c < categoryCount; c++ {
		cats = append(cats, c)
	}
	return cats
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c >= 0 && c < categoryCount
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory maps a config/catalog name to a Category.
func ParseCategory(name string) (Category, error) {
	for c, n := range categoryNames {
		if n == name {
			return Category(c), nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", name)
}

// Package assets decodes audio files into memory once and serves the decoded
// buffers to the device layer on every subsequent playback.
package assets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	gocache "github.com/patrickmn/go-cache"
)

// Decoded holds a fully decoded audio stream and its source format.
type Decoded struct {
	Buffer *beep.Buffer
	Format beep.Format
}

// Cache memoizes decoded audio keyed by file path. Entries never expire;
// the catalog is static for the process lifetime.
type Cache struct {
	store  *gocache.Cache
	logger *slog.Logger
}

// NewCache creates an empty decode cache.
func NewCache() *Cache {
	return &Cache{
		store:  gocache.New(gocache.NoExpiration, 0),
		logger: slog.With("component", "assets"),
	}
}

// Load returns the decoded audio for path, decoding and caching it on first
// use. The format is picked by file extension: mp3, wav, ogg, flac.
func (c *Cache) Load(path string) (*Decoded, error) {
	if hit, ok := c.store.Get(path); ok {
		return hit.(*Decoded), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file %s: %w", path, err)
	}
	defer f.Close()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	streamer.Close()

	decoded := &Decoded{Buffer: buffer, Format: format}
	c.store.Set(path, decoded, gocache.NoExpiration)
	c.logger.Debug("decoded audio file",
		slog.String("file", path),
		slog.Int("samples", buffer.Len()))
	return decoded, nil
}

// Preload decodes the given files ahead of playback. Individual failures are
// logged and skipped so one bad asset does not block the rest.
func (c *Cache) Preload(paths ...string) {
	loaded := 0
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := c.Load(p); err != nil {
			c.logger.Warn("failed to preload audio file",
				slog.String("file", p),
				slog.Any("error", err))
			continue
		}
		loaded++
	}
	c.logger.Info("preloading complete", slog.Int("loaded", loaded))
}

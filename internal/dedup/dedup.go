package dedup

import (
	"context"
	"fmt"
	"time"
)

const suppressionValue = "exists"

type Store interface {
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Suppressor tracks per-camera suppression windows. While a camera's key is
// present no new alert may be issued for it.
type Suppressor struct {
	store  Store
	window time.Duration
}

func NewSuppressor(store Store, window time.Duration) *Suppressor {
	return &Suppressor{store: store, window: window}
}

func Key(camera string) string {
	return fmt.Sprintf("%s_message", camera)
}

func (s *Suppressor) Window() time.Duration { return s.window }

func (s *Suppressor) Suppressed(ctx context.Context, camera string) (bool, error) {
	return s.store.Exists(ctx, Key(camera))
}

// Suppress installs a fresh window for camera, replacing any existing one.
func (s *Suppressor) Suppress(ctx context.Context, camera string) error {
	return s.store.SetWithTTL(ctx, Key(camera), suppressionValue, s.window)
}

// Claim atomically installs a window only if none exists and reports whether
// this caller won it.
func (s *Suppressor) Claim(ctx context.Context, camera string) (bool, error) {
	return s.store.SetIfAbsent(ctx, Key(camera), suppressionValue, s.window)
}

package vibe

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/takeabreak/internal/location"
)

// warmConcurrency caps parallel generation calls during warm-up.
const warmConcurrency = 4

// generator is the interface satisfied by gemini.Client.
type generator interface {
	Vibe(ctx context.Context, name, address, description string) (string, error)
}

// store is the interface satisfied by cache.VibeCache.
type store interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, text string) error
	Delete(ctx context.Context, name string) error
}

// Recorder receives cache hit/miss events.
type Recorder interface {
	ObserveVibeCache(hit bool)
}

// Service returns generated location blurbs, caching them.
type Service struct {
	gen      generator
	cache    store
	recorder Recorder
}

// NewService constructs a Service. recorder may be nil.
func NewService(gen generator, cache store, recorder Recorder) *Service {
	return &Service{gen: gen, cache: cache, recorder: recorder}
}

func (s *Service) observe(hit bool) {
	if s.recorder != nil {
		s.recorder.ObserveVibeCache(hit)
	}
}

// Get returns the vibe for loc, generating and caching it on a miss.
// Cache failures are logged and never fail the call.
func (s *Service) Get(ctx context.Context, loc location.Location) (string, error) {
	cached, ok, err := s.cache.Get(ctx, loc.Name)
	if err != nil {
		slog.Warn("vibe cache get failed", "name", loc.Name, "err", err)
	}
	if ok {
		s.observe(true)
		return cached, nil
	}
	s.observe(false)

	text, err := s.gen.Vibe(ctx, loc.Name, loc.Address, loc.ShortDescription)
	if err != nil {
		return "", fmt.Errorf("vibe for %s: %w", loc.Name, err)
	}

	if err := s.cache.Set(ctx, loc.Name, text); err != nil {
		slog.Warn("vibe cache set failed", "name", loc.Name, "err", err)
	}
	return text, nil
}

// Refresh drops any cached vibe for loc and generates a new one.
func (s *Service) Refresh(ctx context.Context, loc location.Location) (string, error) {
	if err := s.cache.Delete(ctx, loc.Name); err != nil {
		slog.Warn("vibe cache delete failed", "name", loc.Name, "err", err)
	}
	return s.Get(ctx, loc)
}

// WarmAll fills the cache for every record in parallel.
// Individual failures are non-fatal: they are logged and the rest continue.
// It returns how many vibes are available afterwards.
func (s *Service) WarmAll(ctx context.Context, records []location.Location) (int, error) {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)

	var ready atomic.Int64

	for _, loc := range records {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("vibe warm-up panicked", "name", loc.Name, "recover", r)
					err = fmt.Errorf("vibe warm-up for %s panicked: %v", loc.Name, r)
				}
			}()
			if _, getErr := s.Get(gCtx, loc); getErr != nil {
				slog.Warn("vibe warm-up failed", "name", loc.Name, "err", getErr)
				return nil
			}
			ready.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(ready.Load()), fmt.Errorf("warming vibes: %w", err)
	}
	return int(ready.Load()), nil
}

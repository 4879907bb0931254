package artifacts

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Store holds the result of a single artifact load for the life of the
// process. The first Get runs the load; concurrent and later callers wait for
// it and then observe the same artifacts or the same error.
type Store struct {
	load func() (*Artifacts, error)

	once      sync.Once
	artifacts *Artifacts
	err       error

	attempts atomic.Int32
	done     atomic.Bool
}

func NewStore(load func() (*Artifacts, error)) *Store {
	return &Store{load: load}
}

func (s *Store) Get() (*Artifacts, error) {
	s.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("[ArtifactStore] Artifact load panicked", slog.Any("panic", r))
				s.artifacts = nil
				s.err = &LoadError{Artifact: ARTIFACT_ALL, Err: fmt.Errorf("panic: %v", r)}
			}
			s.done.Store(true)
		}()

		s.attempts.Add(1)
		s.artifacts, s.err = s.load()
		if s.err != nil {
			s.artifacts = nil
		}
	})
	return s.artifacts, s.err
}

// Ready reports whether the load has finished successfully, without
// triggering it.
func (s *Store) Ready() bool {
	if !s.done.Load() {
		return false
	}
	_, err := s.Get()
	return err == nil
}

// Loaded reports whether a load attempt has finished, successfully or not.
func (s *Store) Loaded() bool {
	return s.done.Load()
}

// Attempts is the number of times the load function ran; it never exceeds one.
func (s *Store) Attempts() int {
	return int(s.attempts.Load())
}

func (s *Store) Close() error {
	if !s.done.Load() {
		return nil
	}
	a, err := s.Get()
	if err != nil || a == nil {
		return nil
	}
	slog.Info("[ArtifactStore] Releasing artifacts")
	return a.Close()
}

// Package startup brings up the external dependencies of a run (database, Redis, Kafka)
// in dependency order, retrying with a fibonacci backoff.
package startup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"
)

type Dependency interface {
	GetName() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Status int

const (
	StatusPending Status = iota
	StatusStarted
	StatusStopped
	StatusFailed
)

type Startup struct {
	dependencies map[string]Dependency
	order        []string
	logger       ectologger.Logger
	statuses     map[string]Status
	maxAttempts  int
	// unit is the first backoff step; later steps follow the fibonacci sequence
	unit time.Duration
}

func NewStartup(logger ectologger.Logger, maxAttempts int) *Startup {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Startup{
		logger:       logger,
		dependencies: make(map[string]Dependency),
		statuses:     make(map[string]Status),
		maxAttempts:  maxAttempts,
		unit:         time.Second,
	}
}

// WithBackoffUnit replaces the one-second backoff unit
func (s *Startup) WithBackoffUnit(unit time.Duration) *Startup {
	s.unit = unit
	return s
}

func (s *Startup) AddDependency(dependency Dependency) {
	name := dependency.GetName()
	if _, ok := s.dependencies[name]; !ok {
		s.order = append(s.order, name)
	}
	s.dependencies[name] = dependency
}

func (s *Startup) Status(name string) Status {
	return s.statuses[name]
}

// Start starts every dependency, retrying the whole set until it succeeds or maxAttempts
// is reached. Dependencies already started are not started again.
func (s *Startup) Start(ctx context.Context) error {
	if err := s.checkGraph(); err != nil {
		return err
	}

	var lastErr error
	a, b := 1, 1
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		s.logger.WithContext(ctx).WithField("attempt", attempt).Infof("Beginning startup attempt %d", attempt)

		lastErr = nil
		for _, name := range s.order {
			if err := s.startDependency(ctx, s.dependencies[name]); err != nil {
				s.logger.WithContext(ctx).WithError(err).Errorf("Startup dependency '%s' attempt %d failed", name, attempt)
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			return nil
		}
		if attempt == s.maxAttempts {
			break
		}

		wait := time.Duration(a) * s.unit
		s.logger.WithContext(ctx).Infof("Retrying in %s (attempt %d/%d)", wait, attempt, s.maxAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		a, b = b, a+b
	}

	return fmt.Errorf("startup failed after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *Startup) checkGraph() error {
	for _, name := range s.order {
		for _, dep := range s.dependencies[name].DependsOn() {
			if _, ok := s.dependencies[dep]; !ok {
				return fmt.Errorf("dependency '%s' depends on unknown '%s'", name, dep)
			}
		}
	}
	return nil
}

func (s *Startup) startDependency(ctx context.Context, dependency Dependency) error {
	name := dependency.GetName()
	if s.statuses[name] == StatusStarted {
		return nil
	}

	for _, dependencyName := range dependency.DependsOn() {
		if err := s.startDependency(ctx, s.dependencies[dependencyName]); err != nil {
			return err
		}
	}

	s.logger.WithContext(ctx).WithField("dependency", name).Infof("Starting dependency '%s'", name)
	s.statuses[name] = StatusPending
	if err := dependency.Start(ctx); err != nil {
		s.statuses[name] = StatusFailed
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	s.statuses[name] = StatusStarted
	return nil
}

// Stop stops started dependencies, dependents before what they depend on. Every stop is
// attempted; the first error is returned.
func (s *Startup) Stop(ctx context.Context) error {
	var firstErr error
	for _, name := range s.stopOrder() {
		if s.statuses[name] != StatusStarted {
			continue
		}
		s.logger.WithContext(ctx).WithField("dependency", name).Infof("Stopping dependency '%s'", name)
		if err := s.dependencies[name].Stop(ctx); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithField("dependency", name).Errorf("Failed to stop dependency '%s'", name)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.statuses[name] = StatusStopped
	}
	return firstErr
}

// stopOrder ranks dependencies by depth so nothing stops before its dependents
func (s *Startup) stopOrder() []string {
	depth := make(map[string]int)
	var visit func(name string, seen map[string]bool) int
	visit = func(name string, seen map[string]bool) int {
		if d, ok := depth[name]; ok {
			return d
		}
		if seen[name] {
			return 0
		}
		seen[name] = true
		d := 0
		for _, dep := range s.dependencies[name].DependsOn() {
			if n := visit(dep, seen) + 1; n > d {
				d = n
			}
		}
		depth[name] = d
		return d
	}

	names := append([]string(nil), s.order...)
	for _, name := range names {
		visit(name, map[string]bool{})
	}
	sort.SliceStable(names, func(i, j int) bool {
		return depth[names[i]] > depth[names[j]]
	})
	return names
}

// Func adapts a pair of functions into a Dependency
type Func struct {
	Name     string
	Requires []string
	OnStart  func(ctx context.Context) error
	OnStop   func(ctx context.Context) error
}

func (f Func) GetName() string { return f.Name }
func (f Func) DependsOn() []string { return f.Requires }

func (f Func) Start(ctx context.Context) error {
	if f.OnStart == nil {
		return nil
	}
	return f.OnStart(ctx)
}

func (f Func) Stop(ctx context.Context) error {
	if f.OnStop == nil {
		return nil
	}
	return f.OnStop(ctx)
}

// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about project branching and change detection.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so the core packages
// never import an observability backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetBranchHooks(&myBranchHooks{})
//	    observability.SetEvolutionHooks(&myEvolutionHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Branch().OnBranchStart(ctx, project, initial)
//	// ... clone and register ...
//	observability.Branch().OnBranchComplete(ctx, project, version, elements, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Branch Hooks
// =============================================================================

// BranchHooks receives events from whole-project branching.
type BranchHooks interface {
	OnBranchStart(ctx context.Context, project string, initial bool)

	// OnBranchStage reports that a clone stage finished with count copies.
	OnBranchStage(ctx context.Context, stage string, count int)

	OnBranchComplete(ctx context.Context, project string, version int, elements int, duration time.Duration, err error)
}

// =============================================================================
// Evolution Hooks
// =============================================================================

// EvolutionHooks receives events from change detection.
type EvolutionHooks interface {
	// OnDetect records one detector run over a subject.
	OnDetect(ctx context.Context, detector, subject string, changes int)

	// OnVerifyFailed records a change whose self-check failed.
	OnVerifyFailed(ctx context.Context, change string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopBranchHooks is a no-op implementation of BranchHooks.
type NoopBranchHooks struct{}

func (NoopBranchHooks) OnBranchStart(context.Context, string, bool) {}
func (NoopBranchHooks) OnBranchStage(context.Context, string, int)  {}
func (NoopBranchHooks) OnBranchComplete(context.Context, string, int, int, time.Duration, error) {
}

// NoopEvolutionHooks is a no-op implementation of EvolutionHooks.
type NoopEvolutionHooks struct{}

func (NoopEvolutionHooks) OnDetect(context.Context, string, string, int) {}
func (NoopEvolutionHooks) OnVerifyFailed(context.Context, string, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	branchHooks    BranchHooks    = NoopBranchHooks{}
	evolutionHooks EvolutionHooks = NoopEvolutionHooks{}
	hooksMu        sync.RWMutex
)

// SetBranchHooks registers custom branch hooks.
// This should be called once at application startup before any branching.
func SetBranchHooks(h BranchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		branchHooks = h
	}
}

// SetEvolutionHooks registers custom evolution hooks.
func SetEvolutionHooks(h EvolutionHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		evolutionHooks = h
	}
}

// Branch returns the registered branch hooks.
func Branch() BranchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return branchHooks
}

// Evolution returns the registered evolution hooks.
func Evolution() EvolutionHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return evolutionHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	branchHooks = NoopBranchHooks{}
	evolutionHooks = NoopEvolutionHooks{}
}

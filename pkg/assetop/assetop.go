// Package assetop implements the AssetOp contract (spec §4.5): the small
// state machine that drives load/unload/save/import/export work against
// the cache and data controllers, plus a MAIN/WORKER scheduling hint and
// a dependency list that must complete before the op advances.
//
// Grounded on original_source/Code/Runtime/Asset/Ops/SaveDomainOp.cpp, which
// extends a shared op base (OnUpdate override, SetFailed/SetComplete,
// GetExecutionThread, a dependency context threaded through the
// constructor).
//
// © 2025 arena-cache authors. MIT License.
package assetop

import "sync"

// Thread is the scheduling hint an Op reports for where its Update should
// run.
type Thread uint8

const (
	// Worker ops run on the number-of-cores-sized worker pool.
	Worker Thread = iota
	// Main ops run only on the single main thread, alongside end-of-frame
	// bookkeeping.
	Main
)

// Status is the op's externally observable lifecycle state.
type Status uint8

const (
	Pending Status = iota
	Running
	Completed
	Failed
)

// Op is the contract every asset operation (load, unload, save-domain,
// save-domain-cache, delete, import, export) implements. The core
// guarantees Update is never called concurrently with itself for the
// same op, and that a Failed op never re-enters Update.
type Op interface {
	// ExecutionThread reports where this op's Update must run.
	ExecutionThread() Thread
	// Update advances the op's internal state machine by one step. It
	// may be called repeatedly until the op reports Completed or Failed.
	Update()
	// Status reports the op's current lifecycle state.
	Status() Status
	// FailureReason returns the human-readable reason set by SetFailed,
	// or "" if the op has not failed.
	FailureReason() string
	// Dependencies lists the ops whose completion must be observed
	// before this op's Update resumes.
	Dependencies() []Op
}

// BaseOp is an embeddable implementation of the bookkeeping every Op
// shares: status transitions, a failure reason, and a dependency list.
// Concrete ops embed BaseOp and implement their own Update (calling
// SetComplete/SetFailed as OnUpdate does in the original).
type BaseOp struct {
	mu           sync.Mutex
	thread       Thread
	status       Status
	failReason   string
	dependencies []Op
}

// NewBaseOp constructs a BaseOp scheduled on thread, depending on deps.
func NewBaseOp(thread Thread, deps ...Op) BaseOp {
	return BaseOp{thread: thread, dependencies: deps}
}

// ExecutionThread reports the op's scheduling hint.
func (b *BaseOp) ExecutionThread() Thread { return b.thread }

// Status reports the op's current lifecycle state.
func (b *BaseOp) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// FailureReason returns the reason passed to the most recent SetFailed
// call, or "" if the op has not failed.
func (b *BaseOp) FailureReason() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failReason
}

// Dependencies lists the ops this op waits on before resuming Update.
func (b *BaseOp) Dependencies() []Op {
	return b.dependencies
}

// DependenciesSatisfied reports whether every dependency has reached
// Completed. A Failed dependency is surfaced to the caller via
// DependencyFailed so it can fail-forward instead of blocking forever.
func (b *BaseOp) DependenciesSatisfied() bool {
	for _, dep := range b.dependencies {
		if dep.Status() != Completed {
			return false
		}
	}
	return true
}

// DependencyFailed reports the first failed dependency, if any, so a
// dependent op can fail-forward rather than waiting indefinitely.
func (b *BaseOp) DependencyFailed() (Op, bool) {
	for _, dep := range b.dependencies {
		if dep.Status() == Failed {
			return dep, true
		}
	}
	return nil, false
}

// SetRunning marks the op as actively in progress, ahead of its first
// Update call. It is a no-op once the op has reached a terminal state.
func (b *BaseOp) SetRunning() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status == Completed || b.status == Failed {
		return
	}
	b.status = Running
}

// SetComplete transitions the op to Completed. It is idempotent.
func (b *BaseOp) SetComplete() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = Completed
}

// SetFailed transitions the op to Failed with reason. Once failed, an op
// never re-enters Update; callers must check Status before calling it.
func (b *BaseOp) SetFailed(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = Failed
	b.failReason = reason
}

// Package bugreport implements the global "bug" sink described in spec §7:
// a precondition violation or invariant break is not an ordinary error —
// it indicates caller misuse and must surface loudly in debug/test builds
// while still letting the offending call return its sentinel value so
// production code does not crash outright.
//
// Grounded on the original engine's ReportBug/ReportBugMsgEx calls spread
// throughout Runtime/Asset/CacheBlob.cpp and CacheBlock.cpp, which report a
// stable message string and keep running.
//
// © 2025 arena-cache authors. MIT License.
package bugreport

import "go.uber.org/zap"

// Sink receives bug reports. The zero value discards them; call SetSink to
// route them to a logger (or a test hook that fails the test).
var sink func(msg string)

// SetSink installs the function invoked by Report. Passing nil restores
// the default no-op behaviour.
func SetSink(fn func(msg string)) {
	sink = fn
}

// SetLogger is a convenience wrapper around SetSink that logs bugs as zap
// warnings, matching the severity the teacher repo reserves for "should
// never happen" conditions.
func SetLogger(l *zap.Logger) {
	if l == nil {
		sink = nil
		return
	}
	sink = func(msg string) {
		l.Warn("bug", zap.String("message", msg))
	}
}

// Report records a precondition violation or invariant break with a
// stable, testable message. Tests assert against msg directly.
func Report(msg string) {
	if sink != nil {
		sink(msg)
	}
}

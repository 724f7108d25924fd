// Package monitoring holds the replaceable diagnostic loggers shared by the
// replay, capture and storage components.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or the CLI's -quiet flag can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf carries per-sample trace output (the rule behind each label). It is
// muted until SetDebugLogger installs a sink.
var Debugf func(format string, v ...interface{}) = noop

func noop(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = noop
		return
	}
	Logf = f
}

// SetDebugLogger replaces the trace logger. Passing nil mutes it again.
func SetDebugLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Debugf = noop
		return
	}
	Debugf = f
}

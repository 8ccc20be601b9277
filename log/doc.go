// Package log provides a small, leveled logging interface for Dispatch Go.
//
// The resolver and the CLI log through the Logger interface so that callers
// can plug in their own backend. Two implementations ship with the package:
// DefaultLogger on top of the standard library, and GologLogger wrapping
// github.com/kataras/golog. A package-level default logger is available for
// code that does not want to thread a logger through every call.
//
//	logger := log.NewDefaultLogger(log.LogLevelDebug)
//	logger.Debug("settled %s at cost %g", id, cost)
//
//	glogger := golog.New()
//	log.SetDefaultLogger(log.NewGologLogger(glogger))
package log

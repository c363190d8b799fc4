package vox

import "time"

// Level is the lowest severity a message needs to be logged.
type Level uint8

const (
	DebugLevel Level = iota
	InfoLevel
	ErrorLevel
	CriticalLevel
	SilentLevel
)

var (
	// Verbose is set when we want per-file progress messages.
	Verbose bool

	level = InfoLevel
)

// Logger receives the messages that pass the current level.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Criticalf(format string, args ...interface{})

	// Shutdown closes any log file.
	Shutdown()
}

// SetLogLevel drops messages below l.  SilentLevel drops everything.
func SetLogLevel(l Level) {
	level = l
}

func emit(l Level, format string, args []interface{}) {
	if l < level {
		return
	}
	switch l {
	case DebugLevel:
		logger.Debugf(format, args...)
	case InfoLevel:
		logger.Infof(format, args...)
	case ErrorLevel:
		logger.Errorf(format, args...)
	default:
		logger.Criticalf(format, args...)
	}
}

func Debugf(format string, args ...interface{})    { emit(DebugLevel, format, args) }
func Infof(format string, args ...interface{})     { emit(InfoLevel, format, args) }
func Errorf(format string, args ...interface{})    { emit(ErrorLevel, format, args) }
func Criticalf(format string, args ...interface{}) { emit(CriticalLevel, format, args) }

// Shutdown closes any log file opened by LogConfig.SetLogger.
func Shutdown() {
	logger.Shutdown()
}

// TimeLog appends the time since NewTimeLog to each message, e.g.
//
//	timedLog := vox.NewTimeLog()
//	...
//	timedLog.Infof("Rasterized %s", name) // "Rasterized brain1: 1.2s"
type TimeLog struct {
	start time.Time
}

func NewTimeLog() TimeLog {
	return TimeLog{time.Now()}
}

func (t TimeLog) Debugf(format string, args ...interface{}) {
	emit(DebugLevel, format+": %s\n", append(args, time.Since(t.start)))
}

func (t TimeLog) Infof(format string, args ...interface{}) {
	emit(InfoLevel, format+": %s\n", append(args, time.Since(t.start)))
}

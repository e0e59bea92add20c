package watcher

import log "github.com/sirupsen/logrus"

// Level is the severity of a user facing notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notifier shows short transient notices to the user.
type Notifier interface {
	Notify(message string, level Level)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string, level Level)

func (f NotifierFunc) Notify(message string, level Level) {
	f(message, level)
}

// LogNotifier writes notices to the log.
type LogNotifier struct{}

func (LogNotifier) Notify(message string, level Level) {
	entry := log.WithField("notice", string(level))
	switch level {
	case LevelError:
		entry.Error(message)
	case LevelWarning:
		entry.Warn(message)
	default:
		entry.Info(message)
	}
}

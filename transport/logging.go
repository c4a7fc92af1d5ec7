package transport

import (
	"os"

	"github.com/sirupsen/logrus"
)

// defaultLogger mirrors pipe.go's package-level fallback logger: text
// formatted, stderr, warn level by default so a connection that is never
// given an explicit logger still surfaces protocol errors and closes.
var defaultLogger = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: new(logrus.TextFormatter),
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.WarnLevel,
}

func logOrDefault(log *logrus.Logger) *logrus.Logger {
	if log == nil {
		return defaultLogger
	}
	return log
}

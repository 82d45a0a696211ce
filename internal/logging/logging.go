package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Configure sets up the standard logrus logger. format is "json" or "text".
func Configure(level, format string) *logrus.Logger {
	return configure(logrus.StandardLogger(), os.Stdout, level, format)
}

func configure(log *logrus.Logger, out io.Writer, level, format string) *logrus.Logger {
	log.SetOutput(out)

	if strings.EqualFold(format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		log.WithField("level", level).Warn("unknown log level, using info")
	}
	log.SetLevel(lvl)

	return log
}

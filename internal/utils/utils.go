package utils

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
)

var Log = logrus.New()

// ParseLogLevel maps a --loglevel value to a logrus level.
func ParseLogLevel(level string) (logrus.Level, error) {
	// We are not using logrus' trace and panic levels
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel, nil
	case "info", "":
		return log.InfoLevel, nil
	case "warning", "warn":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	case "fatal":
		return log.FatalLevel, nil
	}
	return 0, fmt.Errorf("bad log level %q", level)
}

func SetLogLevel(level string) {
	l, err := ParseLogLevel(level)
	if err != nil {
		log.Fatal("Bad error level string")
	}
	Log.SetLevel(l)
}

// SplitList turns "a, b,,c" into [a b c]. It accepts both a YAML list and
// a comma separated env value coming through viper.
func SplitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

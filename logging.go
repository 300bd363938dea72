package microsim

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SetLogLevel sets level of package logger: trace, debug, info, warn, error, fatal or panic
func SetLogLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "Can't parse log level")
	}
	log.SetLevel(lvl)
	return nil
}

// SetLogFormat switches between text and json formatters
func SetLogFormat(format string) error {
	switch format {
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return errors.Errorf("Unknown log format '%s'", format)
	}
	return nil
}

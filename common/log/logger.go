// Package log configures the process-wide logrus logger the way every dtree
// binary expects it.
package log

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/twitter/dtree/common/log/hooks"
)

// Configure sets the global logrus level and formatter. With fileLine the
// call site of each entry is added under "file:line".
func Configure(level string, json bool, fileLine bool) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "bad log level %q", level)
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)
	if json {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	if fileLine {
		log.AddHook(hooks.NewContextHook())
	}
	return nil
}

package hooks

import (
	"runtime/debug"
	"strings"

	log "github.com/sirupsen/logrus"
)

const repoRoot = "github.com/twitter/dtree/"

// contextHook adds the file:line of the logging call site to every entry.
type contextHook struct {
}

func NewContextHook() contextHook {
	return contextHook{}
}

func (hook contextHook) Levels() []log.Level {
	return log.AllLevels
}

func (hook contextHook) Fire(entry *log.Entry) error {
	if loc := callSite(string(debug.Stack())); loc != "" {
		entry.Data["file:line"] = loc
	}
	return nil
}

// callSite finds the first frame below logrus in a debug.Stack dump and
// returns its path relative to the repository root.
func callSite(stack string) string {
	lines := strings.Split(stack, "\n")
	// Frames are pairs of lines: the function, then a tab and file:line +offset.
	for i := 1; i+1 < len(lines); i += 2 {
		fn := lines[i]
		if strings.Contains(fn, "sirupsen/logrus") ||
			strings.Contains(fn, "runtime/debug") ||
			strings.Contains(fn, "common/log/hooks") {
			continue
		}
		loc := strings.TrimSpace(lines[i+1])
		if idx := strings.LastIndex(loc, " +0x"); idx >= 0 {
			loc = loc[:idx]
		}
		if idx := strings.Index(loc, repoRoot); idx >= 0 {
			loc = loc[idx+len(repoRoot):]
		}
		return loc
	}
	return ""
}

package output

import (
	"os"
	"sync"
)

// Color detection follows the no-color.org convention: NO_COLOR always
// wins, FORCE_COLOR overrides terminal sniffing, and otherwise stdout
// must be a real terminal with a TERM that can render ANSI codes.

var (
	ttyOnce  sync.Once
	ttyColor bool
)

// IsColorSupported reports whether the CLI should emit ANSI colors on
// stdout. The terminal probe is cached for the life of the process; the
// environment overrides are read on every call.
func IsColorSupported() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	if _, set := os.LookupEnv("FORCE_COLOR"); set {
		return true
	}

	ttyOnce.Do(func() {
		ttyColor = stdoutIsTerminal() && termAllowsColor(os.Getenv("TERM"))
	})
	return ttyColor
}

func stdoutIsTerminal() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func termAllowsColor(term string) bool {
	return term != "" && term != "dumb"
}

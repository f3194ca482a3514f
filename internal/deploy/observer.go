package deploy

import "log"

// Observer receives debug-level progress from the runner and steps. The
// human-facing progress line is a separate concern handled by the runner's
// output writer.
type Observer interface {
	Printf(format string, v ...any)
}

type consoleObserver struct{}

// NewConsoleObserver returns an Observer backed by the standard log package.
func NewConsoleObserver() Observer {
	return consoleObserver{}
}

func (consoleObserver) Printf(format string, v ...any) {
	log.Printf(format, v...)
}

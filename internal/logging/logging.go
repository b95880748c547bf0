package logging

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

var root *log.Logger

func Root() *log.Logger {
	once.Do(func() {
		root = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "collidebench",
		})
		root.SetLevel(log.InfoLevel)
	})
	return root
}

// For returns a child logger tagged with a component name, typically
// one per world instance so warnings can be attributed to an engine.
func For(component string) *log.Logger {
	return Root().With("component", component)
}

func SetVerbose(v bool) {
	if v {
		Root().SetLevel(log.DebugLevel)
	}
}

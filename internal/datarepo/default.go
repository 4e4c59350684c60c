package datarepo

import "sync"

var (
	defaultOnce sync.Once
	defaultRepo *Repository
)

// Default returns the process-wide repository, creating it on first use.
// Application wiring should construct its own Repository and pass it around
// explicitly; Default exists for small embedded callers without a wiring layer.
func Default() *Repository {
	defaultOnce.Do(func() {
		// New without options cannot fail.
		defaultRepo, _ = New()
	})
	return defaultRepo
}

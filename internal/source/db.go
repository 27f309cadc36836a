package source

import (
	"github.com/loghound/dbtail/internal/watch"
)

// The SQLite log store provider. The only provider shipped today, but the
// registry keeps the host decoupled from that fact.
func init() {
	Register(".db", openDB)
}

func openDB(path string, opts Options) (*watch.Watcher, error) {
	config := opts.Config
	if config == nil {
		config = watch.DefaultConfig()
	} else {
		// Leave the caller's struct untouched.
		c := *config
		config = &c
	}
	if opts.Scheduler != nil {
		config.Scheduler = opts.Scheduler
	}
	return watch.New(path, opts.Notifier, config)
}

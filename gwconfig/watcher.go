package gwconfig

import (
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchModelDescriptions watches ModelDescriptionsOverrideFile and reloads
// ModelDescriptionOverrides in place whenever it changes, the same
// debounced-write pattern the teacher's provider config watcher uses for
// models.yaml. It is a no-op when no override file was configured. The
// returned watcher must be closed by the caller on shutdown.
func (c *Config) WatchModelDescriptions() (*fsnotify.Watcher, error) {
	if c.ModelDescriptionsOverrideFile == "" {
		return nil, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(c.ModelDescriptionsOverrideFile); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		var debounce *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(100*time.Millisecond, c.reloadModelDescriptions)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("model description watcher error: %v", err)
			}
		}
	}()

	return watcher, nil
}

func (c *Config) reloadModelDescriptions() {
	overrides, err := loadModelDescriptionOverrides(c.ModelDescriptionsOverrideFile)
	if err != nil {
		log.Printf("reloading model description overrides: %v", err)
		return
	}
	c.mutex.Lock()
	c.ModelDescriptionOverrides = overrides
	c.mutex.Unlock()
}

package modelinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/droverhq/drover/internal/logging"
)

const overlayFile = "models.yaml"

// overlayConfig is the on-disk structure of the models.yaml overlay.
type overlayConfig struct {
	Models []Capabilities `yaml:"models"`
}

// LoadOverlay merges models.yaml from dataDir into the catalog. A missing
// file is not an error; the built-in table stands alone.
func (c *Catalog) LoadOverlay(dataDir string) error {
	path := filepath.Join(dataDir, overlayFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	var cfg overlayConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	c.merge(cfg.Models)
	logging.Infof("modelinfo: merged %d overlay entries from %s", len(cfg.Models), path)
	return nil
}

// Watch reloads the overlay whenever models.yaml in dataDir changes.
// The returned stop function closes the watcher.
func (c *Catalog) Watch(dataDir string) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dataDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dataDir, err)
	}

	go func() {
		var debounce *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != overlayFile {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				// Editors may write the file several times in a burst.
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(100*time.Millisecond, func() {
					if err := c.LoadOverlay(dataDir); err != nil {
						logging.Warnf("modelinfo: overlay reload failed: %v", err)
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warnf("modelinfo: watcher error: %v", err)
			}
		}
	}()

	return func() { watcher.Close() }, nil
}

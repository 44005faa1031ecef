package spam

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// keywordFile is the on-disk format:
//
//	keywords:
//	  - viagra
//	  - casino
type keywordFile struct {
	Keywords []string `yaml:"keywords"`
}

// LoadKeywordFile reads a YAML denylist.
func LoadKeywordFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword file: %w", err)
	}
	var kf keywordFile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse keyword file %s: %w", path, err)
	}
	return normalizeKeywords(kf.Keywords), nil
}

// WatchKeywordFile reloads the filter's denylist whenever path changes, until
// ctx is done. The directory is watched rather than the file so that editors
// which replace the file on save are picked up too. A file that fails to
// parse leaves the previous list in place.
func WatchKeywordFile(ctx context.Context, path string, f *Filter, log *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create keyword watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	name := filepath.Base(path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				keywords, err := LoadKeywordFile(path)
				if err != nil {
					log.Warn("Keeping previous spam keywords", "file", path, "error", err)
					continue
				}
				f.SetKeywords(keywords)
				log.Info("Reloaded spam keywords", "file", path, "count", len(f.Keywords()))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("Keyword watcher error", "error", err)
			}
		}
	}()
	return nil
}

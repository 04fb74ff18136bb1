// Package watch reports changes under a source directory tree, coalescing
// bursts of file system events into one notification.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/artpar/cassette/domain/module"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period used when Config.Debounce is zero.
const DefaultDebounce = 250 * time.Millisecond

// Recorder counts raw events.
type Recorder interface {
	SourceChanged()
}

// Config configures a Watcher.
type Config struct {
	Root     string
	Debounce time.Duration
	Ignore   []string // absolute directories whose events are dropped
	Metrics  Recorder
}

// Watcher watches every directory under a root. fsnotify watches are not
// recursive, so directories created later are added as they appear.
type Watcher struct {
	root     string
	debounce time.Duration
	ignore   []string
	metrics  Recorder
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	changed map[string]struct{}
}

// New starts watching cfg.Root.
func New(cfg Config, logger zerolog.Logger) (*Watcher, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	ignore := make([]string, 0, len(cfg.Ignore))
	for _, p := range cfg.Ignore {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("absolute path: %w", err)
		}
		ignore = append(ignore, abs)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		debounce: cfg.Debounce,
		ignore:   ignore,
		metrics:  cfg.Metrics,
		logger:   logger.With().Str("component", "watch").Logger(),
		watcher:  fw,
		changed:  make(map[string]struct{}),
	}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}

	w.logger.Info().Str("root", root).Msg("watching sources for changes")
	return w, nil
}

// Run delivers the changed paths, relative to the root and sorted, to
// onChange after each burst of events. It blocks until ctx is done and
// then releases the watcher.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string)) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.record(event) {
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			if paths := w.drain(); len(paths) > 0 {
				onChange(ctx, paths)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("file watcher error")

		case <-ctx.Done():
			return nil
		}
	}
}

// record notes a relevant event and reports whether it was kept.
func (w *Watcher) record(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod || w.ignored(event.Name) {
		return false
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || module.IsHidden(filepath.ToSlash(rel)) {
		return false
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn().Err(err).Str("dir", event.Name).Msg("failed to watch new directory")
			}
		}
	}

	if w.metrics != nil {
		w.metrics.SourceChanged()
	}
	w.logger.Debug().
		Str("event", event.Op.String()).
		Str("file", rel).
		Msg("source changed")

	w.mu.Lock()
	w.changed[filepath.ToSlash(rel)] = struct{}{}
	w.mu.Unlock()
	return true
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.changed))
	for p := range w.changed {
		paths = append(paths, p)
	}
	w.changed = make(map[string]struct{})
	sort.Strings(paths)
	return paths
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && (strings.HasPrefix(d.Name(), ".") || w.ignored(p)) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("watch directory %s: %w", p, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(p string) bool {
	for _, dir := range w.ignore {
		if p == dir || strings.HasPrefix(p, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

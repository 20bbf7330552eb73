package lootdb

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Watcher polls document modification times below a root directory and
// reports changed documents by their reference.
type Watcher struct {
	root      string
	interval  time.Duration
	onChange  func(ref string)
	lastMTime map[string]time.Time
}

// NewWatcher watches every .yaml/.yml file below root.
func NewWatcher(root string, interval time.Duration, onChange func(ref string)) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Watcher{
		root:      root,
		interval:  interval,
		onChange:  onChange,
		lastMTime: make(map[string]time.Time),
	}
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.Scan(true)
	for {
		select {
		case <-ticker.C:
			w.Scan(false)
		case <-ctx.Done():
			return
		}
	}
}

// Scan compares modification times against the previous scan and reports
// changes. A priming scan records times without reporting. It returns the
// references that changed.
func (w *Watcher) Scan(prime bool) []string {
	var changed []string
	_ = filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !isDocument(p) {
			return nil
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			return nil
		}
		ref := filepath.ToSlash(rel)
		mt := info.ModTime()
		last, ok := w.lastMTime[ref]
		w.lastMTime[ref] = mt
		if !ok {
			if !prime {
				changed = append(changed, ref)
			}
			return nil
		}
		if mt.After(last) && !prime {
			changed = append(changed, ref)
		}
		return nil
	})
	if w.onChange != nil {
		for _, ref := range changed {
			w.onChange(ref)
		}
	}
	return changed
}

func isDocument(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	return ext == ".yaml" || ext == ".yml"
}

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// fileState is what a poll remembers about one top-level file.
type fileState struct {
	size    int64
	modTime time.Time
}

// snapshot records the size and modification time of every regular file
// directly inside dir. Files the filter ignores are left out, so a browser
// still writing a .crdownload does not hold the directory unsettled.
func snapshot(dir string, filter *Filter) (map[string]fileState, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	snap := make(map[string]fileState, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if filter != nil && !filter.Relevant(path) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Gone between ReadDir and Info.
			continue
		}
		snap[e.Name()] = fileState{size: info.Size(), modTime: info.ModTime()}
	}
	return snap, nil
}

func sameSnapshot(a, b map[string]fileState) bool {
	if len(a) != len(b) {
		return false
	}
	for name, st := range a {
		other, ok := b[name]
		if !ok || other.size != st.size || !other.modTime.Equal(st.modTime) {
			return false
		}
	}
	return true
}

// WaitSettled blocks until no relevant file in dir has changed for the
// stable duration, polling every interval. A stable duration of zero
// returns immediately. It returns ctx.Err() when ctx ends first.
func WaitSettled(ctx context.Context, dir string, filter *Filter, stable, interval time.Duration) error {
	if stable <= 0 {
		return nil
	}
	if interval <= 0 || interval > stable {
		interval = stable / 4
		if interval < 10*time.Millisecond {
			interval = 10 * time.Millisecond
		}
	}

	last, err := snapshot(dir, filter)
	if err != nil {
		return err
	}
	quietSince := time.Now()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		cur, err := snapshot(dir, filter)
		if err != nil {
			return err
		}
		if !sameSnapshot(last, cur) {
			last = cur
			quietSince = time.Now()
			continue
		}
		if time.Since(quietSince) >= stable {
			return nil
		}
	}
}

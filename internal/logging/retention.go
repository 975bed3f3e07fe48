package logging

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// MinRetention protects recent log files from pruning regardless of count.
const MinRetention = 24 * time.Hour

// PruneResult describes one pruning pass.
type PruneResult struct {
	Removed    []string // file names, oldest first
	BytesFreed int64
}

type logFile struct {
	name    string
	size    int64
	modTime time.Time
}

// Prune deletes the oldest per-invocation log files in dir so that at most
// keep remain. Files modified within MinRetention of now, and the file
// named by active, are never removed. keep <= 0 disables pruning. Files
// that do not look like invocation logs are left alone.
func Prune(dir string, keep int, active string, now time.Time) (*PruneResult, error) {
	result := &PruneResult{}
	if keep <= 0 {
		return result, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, err
	}

	var logs []logFile
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !isInvocationLog(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		logs = append(logs, logFile{name: name, size: info.Size(), modTime: info.ModTime()})
	}
	if len(logs) <= keep {
		return result, nil
	}

	// Names embed the start time, so they sort chronologically.
	sort.Slice(logs, func(i, j int) bool { return logs[i].name < logs[j].name })

	excess := len(logs) - keep
	for _, lf := range logs[:excess] {
		if lf.name == filepath.Base(active) || now.Sub(lf.modTime) < MinRetention {
			continue
		}
		if err := os.Remove(filepath.Join(dir, lf.name)); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return result, err
		}
		result.Removed = append(result.Removed, lf.name)
		result.BytesFreed += lf.size
	}
	return result, nil
}

func isInvocationLog(name string) bool {
	if !strings.HasPrefix(name, "organizer_") || !strings.HasSuffix(name, ".log") {
		return false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, "organizer_"), ".log")
	_, err := time.Parse("20060102_150405", stamp)
	return err == nil
}

// Package scanner walks a directory tree once and produces an analytical
// report: totals, per-extension and per-category counts, size and age
// rankings, duplicate-size groups, empty folders and hidden files.
package scanner

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"tidyup/internal/category"
)

// ScanErrorType represents the type of scanning error.
type ScanErrorType string

const (
	// DirectoryNotFound indicates the root does not exist.
	DirectoryNotFound ScanErrorType = "DIRECTORY_NOT_FOUND"
	// NotADirectory indicates the root exists but is not a directory.
	NotADirectory ScanErrorType = "NOT_A_DIRECTORY"
	// PermissionDenied indicates the root cannot be read.
	PermissionDenied ScanErrorType = "PERMISSION_DENIED"
)

// ScanError is returned when the root itself cannot be scanned. Problems
// with individual items never produce a ScanError; they land in
// Report.Errors instead.
type ScanError struct {
	Type ScanErrorType
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return string(e.Type) + ": " + e.Path
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// RankCap bounds the oldest and newest file lists.
const RankCap = 10

// Sentinels used for files without an extension.
const (
	NoExtension   = "no_ext"
	OtherCategory = "other"
)

// Progress is reported after each item is visited.
type Progress struct {
	Current int
	Total   int
	Item    string
}

// ProgressFunc receives scan progress.
type ProgressFunc func(Progress)

// Options configures a scan.
type Options struct {
	Progress ProgressFunc
	Logger   *zap.Logger
	RankCap  int // 0 means RankCap
}

// Scan walks root with default options and reports progress to progress,
// which may be nil.
func Scan(ctx context.Context, root string, progress ProgressFunc) (*Report, error) {
	return ScanWithOptions(ctx, root, Options{Progress: progress})
}

// ScanWithOptions walks every descendant of root. The full item list is
// gathered first so progress totals are exact from the first callback.
// Cancelling ctx stops the scan and returns the partial report along with
// the context error.
func ScanWithOptions(ctx context.Context, root string, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rankCap := opts.RankCap
	if rankCap <= 0 {
		rankCap = RankCap
	}

	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if err := checkRoot(root); err != nil {
		logger.Error("cannot scan root", zap.String("path", root), zap.Error(err))
		return nil, err
	}

	start := time.Now()
	b := newBuilder(root, start)

	items, walkErrs := enumerate(root)
	b.report.TotalItems = len(items)
	logger.Info("scan started", zap.String("path", root), zap.Int("items", len(items)))

	for i, path := range items {
		if err := ctx.Err(); err != nil {
			logger.Warn("scan cancelled", zap.String("path", root), zap.Int("visited", i))
			b.finish(rankCap, time.Since(start))
			return b.report, err
		}

		if err := b.visit(path, walkErrs[path]); err != nil {
			logger.Debug("scan item failed", zap.String("item", path), zap.Error(err))
			b.report.Errors = append(b.report.Errors, Issue{Path: path, Message: err.Error()})
		}
		if opts.Progress != nil {
			opts.Progress(Progress{Current: i + 1, Total: len(items), Item: filepath.Base(path)})
		}
	}

	b.finish(rankCap, time.Since(start))
	logger.Info("scan complete",
		zap.String("path", root),
		zap.Int("files", b.report.TotalFiles),
		zap.Int("folders", b.report.TotalFolders),
		zap.Int64("bytes", b.report.TotalSize),
		zap.Int("errors", len(b.report.Errors)),
		zap.Duration("elapsed", b.report.ScanTime),
	)
	return b.report, nil
}

func checkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ScanError{Type: DirectoryNotFound, Path: root, Err: err}
		}
		if errors.Is(err, fs.ErrPermission) {
			return &ScanError{Type: PermissionDenied, Path: root, Err: err}
		}
		return err
	}
	if !info.IsDir() {
		return &ScanError{Type: NotADirectory, Path: root, Err: errors.New("path is not a directory")}
	}

	f, err := os.Open(root)
	if err != nil {
		return &ScanError{Type: PermissionDenied, Path: root, Err: err}
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return &ScanError{Type: PermissionDenied, Path: root, Err: err}
	}
	return nil
}

// enumerate lists every descendant of root, excluding root itself. Errors
// raised while listing a directory are returned keyed by that directory.
func enumerate(root string) ([]string, map[string]error) {
	var items []string
	walkErrs := make(map[string]error)

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path != root {
				walkErrs[path] = err
				if d == nil {
					items = append(items, path)
				}
			}
			return nil
		}
		if path != root {
			items = append(items, path)
		}
		return nil
	})
	return items, walkErrs
}

type builder struct {
	report  *Report
	ages    []AgedFile
	buckets map[int64][]string
	sizes   []int64
}

func newBuilder(root string, start time.Time) *builder {
	return &builder{
		report: &Report{
			Root:         root,
			ScannedAt:    start,
			FileTypes:    make(map[string]int),
			Categories:   make(map[string]CategoryStat),
			LargestFiles: []FileEntry{},
			OldestFiles:  []AgedFile{},
			NewestFiles:  []AgedFile{},
			EmptyFolders: []string{},
			Errors:       []Issue{},
			Duplicates:   []DuplicateGroup{},
		},
		buckets: make(map[int64][]string),
	}
}

// visit inspects one item. Directories that could not be listed still
// count as folders; the listing error is reported.
func (b *builder) visit(path string, walkErr error) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if info.IsDir() {
		b.report.TotalFolders++
		if walkErr != nil {
			return walkErr
		}
		empty, err := isEmptyDir(path)
		if err != nil {
			return err
		}
		if empty {
			b.report.EmptyFolders = append(b.report.EmptyFolders, path)
		}
		return nil
	}

	name := filepath.Base(path)
	size := info.Size()
	ext := strings.ToLower(category.Extension(name))
	if ext == "" || ext == "." {
		ext = NoExtension
	}
	cat := OtherCategory
	if ext != NoExtension {
		cat = strings.TrimPrefix(ext, ".")
	}

	r := b.report
	r.TotalFiles++
	r.TotalSize += size
	r.FileTypes[ext]++
	stat := r.Categories[cat]
	stat.Count++
	stat.Size += size
	r.Categories[cat] = stat

	r.LargestFiles = append(r.LargestFiles, FileEntry{
		Name:          name,
		Path:          path,
		Size:          size,
		SizeFormatted: FormatSize(size),
		Category:      cat,
	})
	b.ages = append(b.ages, AgedFile{Name: name, Path: path, Modified: info.ModTime()})

	if _, seen := b.buckets[size]; !seen {
		b.sizes = append(b.sizes, size)
	}
	b.buckets[size] = append(b.buckets[size], path)

	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		r.HiddenFiles++
	}
	return nil
}

func isEmptyDir(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}

// finish applies rankings and grouping once traversal is over. Ties keep
// traversal order.
func (b *builder) finish(rankCap int, elapsed time.Duration) {
	r := b.report

	sort.SliceStable(r.LargestFiles, func(i, j int) bool {
		return r.LargestFiles[i].Size > r.LargestFiles[j].Size
	})

	oldest := make([]AgedFile, len(b.ages))
	copy(oldest, b.ages)
	sort.SliceStable(oldest, func(i, j int) bool {
		return oldest[i].Modified.Before(oldest[j].Modified)
	})
	newest := make([]AgedFile, len(b.ages))
	copy(newest, b.ages)
	sort.SliceStable(newest, func(i, j int) bool {
		return newest[i].Modified.After(newest[j].Modified)
	})
	r.OldestFiles = topAged(oldest, rankCap)
	r.NewestFiles = topAged(newest, rankCap)

	for _, size := range b.sizes {
		paths := b.buckets[size]
		if len(paths) < 2 {
			continue
		}
		r.Duplicates = append(r.Duplicates, DuplicateGroup{
			Size:          size,
			SizeFormatted: FormatSize(size),
			Count:         len(paths),
			Files:         paths,
		})
	}

	r.ScanTime = elapsed
}

func topAged(entries []AgedFile, n int) []AgedFile {
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

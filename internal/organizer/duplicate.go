package organizer

import (
	"path/filepath"
	"strconv"
	"strings"

	"tidyup/internal/category"
	"tidyup/internal/fileops"
)

// ResolveCollision returns a name under destDir that is not taken.
// If filename is free it is returned unchanged; otherwise "_1", "_2", ...
// is inserted before the extension and the first free candidate wins.
//
// Examples:
//   - "file.pdf" -> "file_1.pdf" (if file.pdf exists)
//   - "file.pdf" -> "file_2.pdf" (if file.pdf and file_1.pdf exist)
//   - "archive.tar.gz" -> "archive.tar_1.gz"
func ResolveCollision(destDir, filename string) string {
	return resolveCollision(destDir, filename, fileops.Exists)
}

// resolveCollision is ResolveCollision with a caller-supplied test for
// whether a full destination path is taken.
func resolveCollision(destDir, filename string, taken func(path string) bool) string {
	if !taken(filepath.Join(destDir, filename)) {
		return filename
	}

	ext := category.Extension(filename)
	base := strings.TrimSuffix(filename, ext)

	for n := 1; ; n++ {
		candidate := base + "_" + strconv.Itoa(n) + ext
		if !taken(filepath.Join(destDir, candidate)) {
			return candidate
		}
	}
}

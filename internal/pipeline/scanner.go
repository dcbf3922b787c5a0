package pipeline

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Source represents a discovered image file.
type Source struct {
	// AbsPath is the path to the file on disk.
	AbsPath string
	// RelPath is the slash-separated path relative to the input directory.
	RelPath string
	// Key is RelPath without extension, or RelPath itself when two sources
	// differ only by extension. Output names derive from it.
	Key string
	// Size is the file size in bytes.
	Size int64
}

// imageExtensions lists extensions with a registered decoder.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
}

// IsImagePath reports whether path has a recognized image extension.
func IsImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// ScanImages walks inputDir and returns image sources sorted by key.
// Hidden directories and anything under excludeDir are skipped.
// Keys are unique: photo.png and photo.jpg become "photo.png" and "photo.jpg".
func ScanImages(inputDir, excludeDir string) ([]Source, error) {
	var sources []Source

	err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != inputDir && (strings.HasPrefix(d.Name(), ".") || path == excludeDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsImagePath(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(inputDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		sources = append(sources, Source{
			AbsPath: path,
			RelPath: rel,
			Key:     strings.TrimSuffix(rel, filepath.Ext(rel)),
			Size:    info.Size(),
		})
		return nil
	})

	if err != nil {
		return nil, err
	}
	if err := uniqueKeys(sources); err != nil {
		return nil, err
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].Key < sources[j].Key })
	return sources, nil
}

// uniqueKeys falls back to the full relative path for keys shared by several
// sources, and fails if that still leaves a collision.
func uniqueKeys(sources []Source) error {
	counts := make(map[string]int, len(sources))
	for _, s := range sources {
		counts[s.Key]++
	}
	for i := range sources {
		if counts[sources[i].Key] > 1 {
			sources[i].Key = sources[i].RelPath
		}
	}

	owner := make(map[string]string, len(sources))
	for _, s := range sources {
		if prev, dup := owner[s.Key]; dup {
			return fmt.Errorf("sources %s and %s map to the same key %q", prev, s.RelPath, s.Key)
		}
		owner[s.Key] = s.RelPath
	}
	return nil
}

package util

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ImageExtensions are the file extensions ListImageFiles accepts, in any case.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Name is the base name of the image file.
	Name string
}

// ListImageFiles lists the image files directly inside dir.
//
// Names that differ only in case are listed once. The result is sorted by path.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: The image files found.
// - error: Error if the directory cannot be read.
func ListImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading image directory %s", dir)
	}

	seen := make(map[string]bool, len(entries))
	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == ".gitkeep" {
			continue
		}
		if !isImageExt(filepath.Ext(entry.Name())) {
			continue
		}

		lower := strings.ToLower(entry.Name())
		if seen[lower] {
			continue
		}
		seen[lower] = true
		files = append(files, ImageFile{Path: filepath.Join(dir, entry.Name()), Name: entry.Name()})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

func isImageExt(ext string) bool {
	for _, e := range ImageExtensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// ImageSet is an ordered set of images with a cursor.
type ImageSet struct {
	Files []ImageFile
	index int
}

// NewImageSet positions a cursor on the first file.
func NewImageSet(files []ImageFile) *ImageSet {
	return &ImageSet{Files: files}
}

// Len returns the number of files.
func (s *ImageSet) Len() int { return len(s.Files) }

// Index returns the cursor position.
func (s *ImageSet) Index() int { return s.index }

// Current returns the file under the cursor.
func (s *ImageSet) Current() (ImageFile, bool) {
	if len(s.Files) == 0 {
		return ImageFile{}, false
	}
	return s.Files[s.index], true
}

// Next moves forward one file. It reports false at the last file.
func (s *ImageSet) Next() bool {
	if s.index >= len(s.Files)-1 {
		return false
	}
	s.index++
	return true
}

// Previous moves back one file. It reports false at the first file.
func (s *ImageSet) Previous() bool {
	if s.index == 0 {
		return false
	}
	s.index--
	return true
}

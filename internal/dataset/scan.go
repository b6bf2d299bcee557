// Package dataset reads image-folder trees: one subdirectory per class, class
// names sorted lexicographically and mapped to labels 0..K-1.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"training-workspace-service/internal/domain"
)

// Class is one class directory within a tree.
type Class struct {
	Name       string `json:"name"`
	Label      int    `json:"label"`
	ImageCount int    `json:"image_count"`
}

// Sample is one image file with its class label.
type Sample struct {
	Path  string
	Label int
}

// Tree is the result of scanning an image-folder root.
type Tree struct {
	Root    string
	Classes []Class
	Samples []Sample
}

// NumClasses returns K, counting empty class directories as classes so that
// label assignment matches the directory listing.
func (t *Tree) NumClasses() int {
	return len(t.Classes)
}

// ClassNames returns the sorted class names, indexed by label.
func (t *Tree) ClassNames() []string {
	names := make([]string, len(t.Classes))
	for i, c := range t.Classes {
		names[i] = c.Name
	}
	return names
}

// IsImageFile reports whether a file name carries a supported image
// extension.
func IsImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif":
		return true
	}
	return false
}

// Scan reads one level of class directories beneath root. Labels depend only
// on the sorted class-name set; samples are ordered by (class, file name) so
// repeated scans of the same tree are identical. Non-image files are skipped.
func Scan(root string) (*Tree, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDatasetNotFound, root)
		}
		return nil, fmt.Errorf("stat dataset root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrDatasetNotFound, root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read dataset root: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	tree := &Tree{Root: root}
	total := 0
	for label, name := range names {
		dir := filepath.Join(root, name)
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read class %s: %w", name, err)
		}

		var imgs []string
		for _, f := range files {
			if !f.IsDir() && IsImageFile(f.Name()) {
				imgs = append(imgs, f.Name())
			}
		}
		sort.Strings(imgs)

		tree.Classes = append(tree.Classes, Class{Name: name, Label: label, ImageCount: len(imgs)})
		for _, img := range imgs {
			tree.Samples = append(tree.Samples, Sample{Path: filepath.Join(dir, img), Label: label})
		}
		total += len(imgs)
	}

	if total == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrDatasetEmpty, root)
	}
	return tree, nil
}

// Stats summarizes a scanned tree for listings.
type Stats struct {
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	Classes     int     `json:"classes"`
	Images      int     `json:"images"`
	ClassDetail []Class `json:"class_detail,omitempty"`
}

// Describe computes listing stats for a tree.
func (t *Tree) Describe(name string) Stats {
	return Stats{
		Name:        name,
		Path:        t.Root,
		Classes:     len(t.Classes),
		Images:      len(t.Samples),
		ClassDetail: t.Classes,
	}
}

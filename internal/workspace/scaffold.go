package workspace

import (
	"fmt"
	"os"
)

// ScaffoldResult lists which conventional directories Scaffold created and
// which already existed.
type ScaffoldResult struct {
	Created  []string `json:"created"`
	Existing []string `json:"existing"`
}

// Scaffold creates the conventional workspace directories plus every split
// declared in the manifest. It is idempotent: existing directories are left
// untouched.
func Scaffold(l Layout, m Manifest) (*ScaffoldResult, error) {
	dirs := []string{
		l.Datasets(),
		l.Encoded(),
		l.Checkpoints(),
		l.EncoderCheckpoints(),
		l.ClassifierCheckpoints(),
	}
	for _, ds := range m.Datasets {
		root := ds.DatasetPath(l)
		dirs = append(dirs, root)
		for _, split := range ds.Splits {
			dirs = append(dirs, joinRoot(root, split.Name))
		}
	}

	result := &ScaffoldResult{}
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil {
			if !info.IsDir() {
				return nil, fmt.Errorf("scaffold: %s exists but is not a directory", dir)
			}
			result.Existing = append(result.Existing, dir)
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("scaffold: create %s: %w", dir, err)
		}
		result.Created = append(result.Created, dir)
	}
	return result, nil
}

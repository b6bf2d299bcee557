package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFile is looked up at the workspace root when no explicit manifest
// path is configured.
const ManifestFile = "workspace.yaml"

// SplitSpec declares one split of a dataset.
type SplitSpec struct {
	Name     string `yaml:"name"`
	Required bool   `yaml:"required"`
}

// DatasetSpec declares what a dataset tree must look like to pass
// verification.
type DatasetSpec struct {
	Name string `yaml:"name"`
	// Path is relative to the workspace root; empty means
	// datasets/<Name>.
	Path string `yaml:"path,omitempty"`
	// Classes is the expected number of class directories per split;
	// zero disables the check.
	Classes           int         `yaml:"classes,omitempty"`
	MinImagesPerClass int         `yaml:"min_images_per_class,omitempty"`
	Splits            []SplitSpec `yaml:"splits"`
}

// Manifest models workspace.yaml.
type Manifest struct {
	Version  int           `yaml:"version"`
	Datasets []DatasetSpec `yaml:"datasets"`
}

// Default is the manifest used when the workspace does not carry one: the
// 50-class ImageNet subset with a required train split and an optional test
// split.
func Default() Manifest {
	return Manifest{
		Version: 1,
		Datasets: []DatasetSpec{
			{
				Name:              PrimaryDataset,
				Classes:           50,
				MinImagesPerClass: 1,
				Splits: []SplitSpec{
					{Name: TrainSplit, Required: true},
					{Name: TestSplit, Required: false},
				},
			},
		},
	}
}

// LoadManifest reads a manifest file. A missing file is not an error: the
// default manifest is returned so a bare workspace still verifies against
// the built-in conventions.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Datasets) == 0 {
		return Manifest{}, fmt.Errorf("manifest %s declares no datasets", path)
	}
	for i, ds := range m.Datasets {
		if ds.Name == "" {
			return Manifest{}, fmt.Errorf("manifest %s: dataset %d has no name", path, i)
		}
		if len(ds.Splits) == 0 {
			m.Datasets[i].Splits = []SplitSpec{{Name: TrainSplit, Required: true}}
		}
	}
	return m, nil
}

// DatasetPath resolves the root of a declared dataset under a layout.
func (d DatasetSpec) DatasetPath(l Layout) string {
	if d.Path != "" {
		return joinRoot(l.Root, d.Path)
	}
	return l.DatasetDir(d.Name)
}

// SplitPath resolves one split directory of the declared dataset.
func (d DatasetSpec) SplitPath(l Layout, split string) string {
	return joinRoot(d.DatasetPath(l), split)
}

func joinRoot(root, rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(root, rel)
}

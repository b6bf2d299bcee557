package workspace

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"training-workspace-service/internal/dataset"
)

type Severity string

const (
	SeverityOK   Severity = "ok"
	SeverityWarn Severity = "warn"
	SeverityFail Severity = "fail"
)

// Check is one verification result.
type Check struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail,omitempty"`
}

// Report is the ordered outcome of verifying a workspace tree.
type Report struct {
	Checks []Check `json:"checks"`
}

// OK reports whether no check failed. Warnings do not fail a report.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if c.Severity == SeverityFail {
			return false
		}
	}
	return true
}

// Failures counts fail-severity checks.
func (r *Report) Failures() int {
	n := 0
	for _, c := range r.Checks {
		if c.Severity == SeverityFail {
			n++
		}
	}
	return n
}

func (r *Report) add(name, path string, sev Severity, detail string) {
	r.Checks = append(r.Checks, Check{Name: name, Path: path, Severity: sev, Detail: detail})
}

// Verify inspects the workspace tree against the manifest without modifying
// it. Missing required pieces produce fail checks; missing optional pieces
// produce warnings.
func Verify(l Layout, m Manifest) *Report {
	r := &Report{}

	info, err := os.Stat(l.Root)
	if err != nil {
		r.add("workspace root", l.Root, SeverityFail, "does not exist")
		return r
	}
	if !info.IsDir() {
		r.add("workspace root", l.Root, SeverityFail, "not a directory")
		return r
	}
	r.add("workspace root", l.Root, SeverityOK, "")

	checkDir(r, "datasets directory", l.Datasets())

	for _, ds := range m.Datasets {
		dsRoot := ds.DatasetPath(l)
		if !checkDir(r, fmt.Sprintf("dataset %s", ds.Name), dsRoot) {
			continue
		}
		for _, split := range ds.Splits {
			verifySplit(r, ds, split, joinRoot(dsRoot, split.Name))
		}
	}

	checkDir(r, "checkpoints directory", l.Checkpoints())
	return r
}

func checkDir(r *Report, name, path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		r.add(name, path, SeverityFail, "does not exist")
		return false
	}
	if !info.IsDir() {
		r.add(name, path, SeverityFail, "not a directory")
		return false
	}
	r.add(name, path, SeverityOK, "")
	return true
}

func verifySplit(r *Report, ds DatasetSpec, split SplitSpec, path string) {
	name := fmt.Sprintf("dataset %s/%s", ds.Name, split.Name)

	info, err := os.Stat(path)
	if err != nil {
		if split.Required {
			r.add(name, path, SeverityFail, "missing required split")
		} else {
			r.add(name, path, SeverityWarn, "optional split missing")
		}
		return
	}
	if !info.IsDir() {
		r.add(name, path, SeverityFail, "not a directory")
		return
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		r.add(name, path, SeverityFail, fmt.Sprintf("unreadable: %v", err))
		return
	}

	var classes, images, strays int
	var short []string
	for _, e := range entries {
		if !e.IsDir() {
			strays++
			continue
		}
		classes++
		count, err := countImages(joinRoot(path, e.Name()))
		if err != nil {
			r.add(name, path, SeverityFail, fmt.Sprintf("class %s unreadable: %v", e.Name(), err))
			return
		}
		images += count
		minImages := ds.MinImagesPerClass
		if minImages <= 0 {
			minImages = 1
		}
		if count < minImages {
			short = append(short, e.Name())
		}
	}

	switch {
	case classes == 0:
		r.add(name, path, SeverityFail, "no class directories")
		return
	case ds.Classes > 0 && classes != ds.Classes:
		r.add(name, path, SeverityFail, fmt.Sprintf("expected %d classes, found %d", ds.Classes, classes))
		return
	case len(short) > 0:
		sort.Strings(short)
		r.add(name, path, SeverityFail, fmt.Sprintf("%d classes below minimum image count: %s", len(short), truncateList(short, 3)))
		return
	}

	if strays > 0 {
		r.add(name, path, SeverityWarn, fmt.Sprintf("%d classes, %d images, %d stray files ignored", classes, images, strays))
		return
	}
	r.add(name, path, SeverityOK, fmt.Sprintf("%d classes, %d images", classes, images))
}

func countImages(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && dataset.IsImageFile(e.Name()) {
			n++
		}
	}
	return n, nil
}

func truncateList(names []string, limit int) string {
	if len(names) <= limit {
		return strings.Join(names, ", ")
	}
	return strings.Join(names[:limit], ", ") + ", ..."
}

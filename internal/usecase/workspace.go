package usecase

import (
	"context"

	"training-workspace-service/internal/dataset"
	"training-workspace-service/internal/domain"
	"training-workspace-service/internal/workspace"
)

// WorkspaceUseCase provisions and verifies the on-disk training workspace.
type WorkspaceUseCase struct {
	layout   workspace.Layout
	manifest workspace.Manifest
}

func NewWorkspaceUseCase(layout workspace.Layout, manifest workspace.Manifest) *WorkspaceUseCase {
	return &WorkspaceUseCase{layout: layout, manifest: manifest}
}

// Init creates the conventional directories the manifest calls for.
func (uc *WorkspaceUseCase) Init(ctx context.Context) (*workspace.ScaffoldResult, error) {
	return workspace.Scaffold(uc.layout, uc.manifest)
}

// Verify checks the workspace tree against the manifest.
func (uc *WorkspaceUseCase) Verify(ctx context.Context) *workspace.Report {
	return workspace.Verify(uc.layout, uc.manifest)
}

// Datasets scans every manifest dataset's train split. Datasets that cannot
// be scanned are listed with zero counts so the response covers the whole
// manifest.
func (uc *WorkspaceUseCase) Datasets(ctx context.Context) []dataset.Stats {
	stats := make([]dataset.Stats, 0, len(uc.manifest.Datasets))
	for _, spec := range uc.manifest.Datasets {
		dir := spec.SplitPath(uc.layout, workspace.TrainSplit)
		tree, err := dataset.Scan(dir)
		if err != nil {
			stats = append(stats, dataset.Stats{Name: spec.Name, Path: dir})
			continue
		}
		s := tree.Describe(spec.Name)
		s.ClassDetail = nil
		stats = append(stats, s)
	}
	return stats
}

// Dataset scans one manifest dataset and describes its class layout.
func (uc *WorkspaceUseCase) Dataset(ctx context.Context, name string) (*dataset.Stats, error) {
	var spec *workspace.DatasetSpec
	for i := range uc.manifest.Datasets {
		if uc.manifest.Datasets[i].Name == name {
			spec = &uc.manifest.Datasets[i]
			break
		}
	}
	if spec == nil {
		return nil, domain.ErrDatasetNotFound
	}

	tree, err := dataset.Scan(spec.SplitPath(uc.layout, workspace.TrainSplit))
	if err != nil {
		return nil, err
	}
	stats := tree.Describe(name)
	return &stats, nil
}

// Layout exposes the workspace layout for handlers that report paths.
func (uc *WorkspaceUseCase) Layout() workspace.Layout { return uc.layout }

// Manifest exposes the loaded manifest.
func (uc *WorkspaceUseCase) Manifest() workspace.Manifest { return uc.manifest }

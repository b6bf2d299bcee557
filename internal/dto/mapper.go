package dto

import (
	"time"

	"training-workspace-service/internal/dataset"
	"training-workspace-service/internal/domain"
	"training-workspace-service/internal/workspace"
)

const timeFormat = time.RFC3339

func ToRunResponse(r *domain.TrainingRun) RunResponse {
	resp := RunResponse{
		ID:             r.ID,
		CreatedAt:      r.CreatedAt.Format(timeFormat),
		UpdatedAt:      r.UpdatedAt.Format(timeFormat),
		Algorithm:      string(r.Algorithm),
		Dataset:        r.DatasetName,
		DatasetPath:    r.DatasetPath,
		CheckpointPath: r.CheckpointPath,
		BatchSize:      r.BatchSize,
		Epochs:         r.Epochs,
		OutFeatures:    r.OutFeatures,
		Tau:            r.Tau,
		TauS:           r.TauS,
		LabelRange:     r.LabelRange,
		Seed:           r.Seed,
		LaunchMode:     string(r.LaunchMode),
		JobName:        r.JobName,
		Status:         string(r.Status),
		CurrentEpoch:   r.CurrentEpoch,
		LastLoss:       r.LastLoss,
		Error:          r.Error,
	}
	if r.FinishedAt != nil {
		resp.FinishedAt = r.FinishedAt.Format(timeFormat)
	}
	return resp
}

func ToEmbeddingSetResponse(s *domain.EmbeddingSet) EmbeddingSetResponse {
	return EmbeddingSetResponse{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt.Format(timeFormat),
		RunID:      s.RunID,
		Model:      string(s.Model),
		ModelID:    s.ModelID,
		Task:       s.Task,
		Name:       s.Name,
		Dim:        s.Dim,
		TrainPath:  s.TrainPath,
		TestPath:   s.TestPath,
		TrainCount: s.TrainCount,
		TestCount:  s.TestCount,
	}
}

func ToClassifierEvalResponse(e *domain.ClassifierEval) ClassifierEvalResponse {
	return ClassifierEvalResponse{
		ID:             e.ID,
		CreatedAt:      e.CreatedAt.Format(timeFormat),
		EmbeddingSetID: e.EmbeddingSetID,
		ClassifierPath: e.ClassifierPath,
		Accuracy:       e.Accuracy,
		TrainSamples:   e.TrainSamples,
		TestSamples:    e.TestSamples,
		MaxIter:        e.MaxIter,
	}
}

func ToVerifyResponse(r *workspace.Report) VerifyWorkspaceResponse {
	checks := make([]CheckResponse, 0, len(r.Checks))
	for _, c := range r.Checks {
		checks = append(checks, CheckResponse{
			Name:     c.Name,
			Path:     c.Path,
			Severity: string(c.Severity),
			Detail:   c.Detail,
		})
	}
	return VerifyWorkspaceResponse{
		OK:       r.OK(),
		Failures: r.Failures(),
		Checks:   checks,
	}
}

func ToDatasetStatsResponse(s *dataset.Stats) DatasetStatsResponse {
	detail := make([]DatasetClassResponse, 0, len(s.ClassDetail))
	for _, c := range s.ClassDetail {
		detail = append(detail, DatasetClassResponse{
			Name:       c.Name,
			Label:      c.Label,
			ImageCount: c.ImageCount,
		})
	}
	return DatasetStatsResponse{
		Name:    s.Name,
		Path:    s.Path,
		Classes: s.Classes,
		Images:  s.Images,
		Detail:  detail,
	}
}

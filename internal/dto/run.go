package dto

import (
	"github.com/google/uuid"
)

type CreateRunRequest struct {
	Algorithm   string  `json:"algorithm" binding:"required"`
	Dataset     string  `json:"dataset" binding:"required"`
	BatchSize   int     `json:"batch_size"`
	Epochs      int     `json:"epochs"`
	OutFeatures int     `json:"out_features"`
	Tau         float64 `json:"tau"`
	TauS        float64 `json:"tau_s"`
	LabelRange  int     `json:"label_range"`
	Seed        int64   `json:"seed"`
	Kubernetes  bool    `json:"kubernetes"`
}

type RunResponse struct {
	ID             uuid.UUID `json:"id"`
	CreatedAt      string    `json:"created_at"`
	UpdatedAt      string    `json:"updated_at"`
	Algorithm      string    `json:"algorithm"`
	Dataset        string    `json:"dataset"`
	DatasetPath    string    `json:"dataset_path"`
	CheckpointPath string    `json:"checkpoint_path,omitempty"`
	BatchSize      int       `json:"batch_size"`
	Epochs         int       `json:"epochs"`
	OutFeatures    int       `json:"out_features"`
	Tau            float64   `json:"tau"`
	TauS           float64   `json:"tau_s"`
	LabelRange     int       `json:"label_range"`
	Seed           int64     `json:"seed"`
	LaunchMode     string    `json:"launch_mode"`
	JobName        string    `json:"job_name,omitempty"`
	Status         string    `json:"status"`
	CurrentEpoch   int       `json:"current_epoch"`
	LastLoss       float64   `json:"last_loss"`
	Error          string    `json:"error,omitempty"`
	FinishedAt     string    `json:"finished_at,omitempty"`
}

type ListRunsResponse struct {
	Items      []RunResponse `json:"items"`
	Total      int           `json:"total"`
	PageSize   int           `json:"page_size"`
	NextOffset int           `json:"next_offset"`
}

type RunLossesResponse struct {
	RunID  uuid.UUID `json:"run_id"`
	Epochs int       `json:"epochs"`
	Losses []float64 `json:"losses"`
}

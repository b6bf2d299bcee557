package domain

import (
	"time"

	"github.com/google/uuid"
)

type Algorithm string

const (
	AlgorithmSimCLR Algorithm = "simclr"
	AlgorithmXCLR   Algorithm = "xclr"
)

func ValidAlgorithm(a Algorithm) bool {
	return a == AlgorithmSimCLR || a == AlgorithmXCLR
}

type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// Finished reports whether the status is terminal.
func (s RunStatus) Finished() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed || s == RunStatusCancelled
}

type LaunchMode string

const (
	LaunchModeLocal      LaunchMode = "LOCAL"
	LaunchModeKubernetes LaunchMode = "KUBERNETES"
)

// TrainingRun is one contrastive pretraining run. Its encoder checkpoints
// live under CheckpointPath (a timestamped directory beneath
// checkpoints/encoders/<algorithm>/).
type TrainingRun struct {
	ID             uuid.UUID  `json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Algorithm      Algorithm  `json:"algorithm"`
	DatasetName    string     `json:"dataset_name"`
	DatasetPath    string     `json:"dataset_path"`
	CheckpointPath string     `json:"checkpoint_path"`
	BatchSize      int        `json:"batch_size"`
	Epochs         int        `json:"epochs"`
	OutFeatures    int        `json:"out_features"`
	Tau            float64    `json:"tau"`
	TauS           float64    `json:"tau_s"`
	LabelRange     int        `json:"label_range"`
	Seed           int64      `json:"seed"`
	LaunchMode     LaunchMode `json:"launch_mode"`
	JobName        string     `json:"job_name,omitempty"`
	Status         RunStatus  `json:"status"`
	CurrentEpoch   int        `json:"current_epoch"`
	LastLoss       float64    `json:"last_loss"`
	Error          string     `json:"error,omitempty"`
	FinishedAt     *time.Time `json:"finished_at"`
}

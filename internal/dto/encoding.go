package dto

import (
	"github.com/google/uuid"
)

type CreateEncodingRequest struct {
	RunID          *uuid.UUID `json:"run_id"`
	CheckpointPath string     `json:"checkpoint_path"`
	Model          string     `json:"model"`
	Task           string     `json:"task" binding:"required"`
	Name           string     `json:"name"`
	TestFraction   float64    `json:"test_fraction"`
	Seed           int64      `json:"seed"`
}

type EmbeddingSetResponse struct {
	ID         uuid.UUID  `json:"id"`
	CreatedAt  string     `json:"created_at"`
	RunID      *uuid.UUID `json:"run_id,omitempty"`
	Model      string     `json:"model"`
	ModelID    string     `json:"model_id"`
	Task       string     `json:"task"`
	Name       string     `json:"name,omitempty"`
	Dim        int        `json:"dim"`
	TrainPath  string     `json:"train_path"`
	TestPath   string     `json:"test_path,omitempty"`
	TrainCount int        `json:"train_count"`
	TestCount  int        `json:"test_count"`
}

type ListEmbeddingSetsResponse struct {
	Items      []EmbeddingSetResponse `json:"items"`
	Total      int                    `json:"total"`
	PageSize   int                    `json:"page_size"`
	NextOffset int                    `json:"next_offset"`
}

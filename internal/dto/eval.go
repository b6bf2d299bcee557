package dto

import (
	"github.com/google/uuid"
)

type CreateEvalRequest struct {
	EmbeddingSetID uuid.UUID `json:"embedding_set_id" binding:"required"`
	MaxIter        int       `json:"max_iter"`
}

type ClassifierEvalResponse struct {
	ID             uuid.UUID `json:"id"`
	CreatedAt      string    `json:"created_at"`
	EmbeddingSetID uuid.UUID `json:"embedding_set_id"`
	ClassifierPath string    `json:"classifier_path,omitempty"`
	Accuracy       float64   `json:"accuracy"`
	TrainSamples   int       `json:"train_samples"`
	TestSamples    int       `json:"test_samples"`
	MaxIter        int       `json:"max_iter"`
}

type ListClassifierEvalsResponse struct {
	Items      []ClassifierEvalResponse `json:"items"`
	Total      int                      `json:"total"`
	PageSize   int                      `json:"page_size"`
	NextOffset int                      `json:"next_offset"`
}

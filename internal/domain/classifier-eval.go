package domain

import (
	"time"

	"github.com/google/uuid"
)

// ClassifierEval records one downstream logistic-regression evaluation over
// an embedding set.
type ClassifierEval struct {
	ID             uuid.UUID `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	EmbeddingSetID uuid.UUID `json:"embedding_set_id"`
	ClassifierPath string    `json:"classifier_path,omitempty"`
	Accuracy       float64   `json:"accuracy"`
	TrainSamples   int       `json:"train_samples"`
	TestSamples    int       `json:"test_samples"`
	MaxIter        int       `json:"max_iter"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// EmbeddingSet records one encoded dataset: vectors produced by a trained
// encoder, persisted under datasets/encoded/<model>/<model_id>/<name|task>/.
type EmbeddingSet struct {
	ID         uuid.UUID  `json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	RunID      *uuid.UUID `json:"run_id"`
	Model      Algorithm  `json:"model"`
	ModelID    string     `json:"model_id"`
	Task       string     `json:"task"`
	Name       string     `json:"name,omitempty"`
	Dim        int        `json:"dim"`
	TrainPath  string     `json:"train_path,omitempty"`
	TestPath   string     `json:"test_path,omitempty"`
	TrainCount int        `json:"train_count"`
	TestCount  int        `json:"test_count"`
}

// Dir is the path segment the set was saved under: Name when given, else Task.
func (s *EmbeddingSet) Dir() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Task
}

package domain

import "errors"

var (
	ErrRunNotFound       = errors.New("training run not found")
	ErrRunConflict       = errors.New("run with this checkpoint path already exists")
	ErrRunNotCancellable = errors.New("cannot cancel run: already finished")
	ErrRunNotFinished    = errors.New("run has not finished successfully")

	ErrEncodingNotFound = errors.New("embedding set not found")
	ErrEncodingConflict = errors.New("embedding set with this model, id and task already exists")
	ErrEvalNotFound     = errors.New("classifier evaluation not found")

	ErrInvalidAlgorithm = errors.New("algorithm must be one of: simclr, xclr")
	ErrInvalidBatchSize = errors.New("batch size must be at least 2")
	ErrMissingDataset   = errors.New("dataset path is required")
	ErrMissingModelID   = errors.New("model id is required")

	ErrDatasetNotFound = errors.New("dataset root does not exist")
	ErrDatasetEmpty    = errors.New("dataset contains no class directories with images")
	ErrDatasetTooSmall = errors.New("dataset too small: a contrastive batch needs at least two images")
	ErrLabelOutOfRange = errors.New("sample label exceeds the configured label range")

	ErrCheckpointNotFound = errors.New("encoder checkpoint not found")
	ErrCheckpointCorrupt  = errors.New("encoder checkpoint is corrupt")

	ErrEmbeddingCorrupt     = errors.New("embedding set file is corrupt")
	ErrEmbeddingEmpty       = errors.New("embedding set contains no vectors")
	ErrEmbeddingDimMismatch = errors.New("train and test embeddings have different dimensions")

	ErrLauncherDisabled = errors.New("kubernetes launcher is not enabled")
)

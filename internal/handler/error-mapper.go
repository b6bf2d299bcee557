package handler

import (
	"errors"
	"net/http"

	"training-workspace-service/internal/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrRunNotFound),
		errors.Is(err, domain.ErrEncodingNotFound),
		errors.Is(err, domain.ErrEvalNotFound),
		errors.Is(err, domain.ErrDatasetNotFound),
		errors.Is(err, domain.ErrCheckpointNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrRunConflict),
		errors.Is(err, domain.ErrEncodingConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrInvalidAlgorithm),
		errors.Is(err, domain.ErrInvalidBatchSize),
		errors.Is(err, domain.ErrMissingDataset),
		errors.Is(err, domain.ErrMissingModelID),
		errors.Is(err, domain.ErrRunNotCancellable),
		errors.Is(err, domain.ErrRunNotFinished):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrDatasetEmpty),
		errors.Is(err, domain.ErrDatasetTooSmall),
		errors.Is(err, domain.ErrLabelOutOfRange),
		errors.Is(err, domain.ErrCheckpointCorrupt),
		errors.Is(err, domain.ErrEmbeddingCorrupt),
		errors.Is(err, domain.ErrEmbeddingEmpty),
		errors.Is(err, domain.ErrEmbeddingDimMismatch),
		errors.Is(err, domain.ErrLauncherDisabled):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

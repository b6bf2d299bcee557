package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"training-workspace-service/internal/domain"
	"training-workspace-service/internal/dto"
	"training-workspace-service/internal/usecase"
)

func (h *Handler) CreateRun(c *gin.Context) {
	var req dto.CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.runUC.Create(c.Request.Context(), usecase.CreateRunParams{
		Algorithm:   req.Algorithm,
		Dataset:     req.Dataset,
		BatchSize:   req.BatchSize,
		Epochs:      req.Epochs,
		OutFeatures: req.OutFeatures,
		Tau:         req.Tau,
		TauS:        req.TauS,
		LabelRange:  req.LabelRange,
		Seed:        req.Seed,
		Kubernetes:  req.Kubernetes,
	})
	if err != nil {
		log.WithError(err).Error("create run failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToRunResponse(run))
}

func (h *Handler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := domain.RunListFilter{
		Status:    c.Query("status"),
		Algorithm: c.Query("algorithm"),
		Limit:     limit,
		Offset:    offset,
	}

	runs, total, err := h.runUC.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list runs failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.RunResponse, 0, len(runs))
	for _, r := range runs {
		items = append(items, dto.ToRunResponse(r))
	}

	c.JSON(http.StatusOK, dto.ListRunsResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := h.runUC.Get(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToRunResponse(run))
}

func (h *Handler) GetRunLosses(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	losses, err := h.runUC.Losses(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RunLossesResponse{
		RunID:  id,
		Epochs: len(losses),
		Losses: losses,
	})
}

func (h *Handler) CancelRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := h.runUC.Cancel(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Error("cancel run failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToRunResponse(run))
}

func (h *Handler) DeleteRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	if err := h.runUC.Delete(c.Request.Context(), id); err != nil {
		log.WithError(err).Error("delete run failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

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

func (h *Handler) CreateEncoding(c *gin.Context) {
	var req dto.CreateEncodingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	set, err := h.encodingUC.Create(c.Request.Context(), usecase.EncodeParams{
		RunID:          req.RunID,
		CheckpointPath: req.CheckpointPath,
		Model:          req.Model,
		Task:           req.Task,
		Name:           req.Name,
		TestFraction:   req.TestFraction,
		Seed:           req.Seed,
	})
	if err != nil {
		log.WithError(err).Error("create encoding failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToEmbeddingSetResponse(set))
}

func (h *Handler) ListEncodings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := domain.EmbeddingListFilter{
		Model:   c.Query("model"),
		ModelID: c.Query("model_id"),
		Task:    c.Query("task"),
		Limit:   limit,
		Offset:  offset,
	}

	sets, total, err := h.encodingUC.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list encodings failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.EmbeddingSetResponse, 0, len(sets))
	for _, s := range sets {
		items = append(items, dto.ToEmbeddingSetResponse(s))
	}

	c.JSON(http.StatusOK, dto.ListEmbeddingSetsResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetEncoding(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid embedding set id"})
		return
	}

	set, err := h.encodingUC.Get(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEmbeddingSetResponse(set))
}

func (h *Handler) DeleteEncoding(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid embedding set id"})
		return
	}

	if err := h.encodingUC.Delete(c.Request.Context(), id); err != nil {
		log.WithError(err).Error("delete encoding failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

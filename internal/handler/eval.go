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

func (h *Handler) CreateEval(c *gin.Context) {
	var req dto.CreateEvalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	eval, err := h.classifierUC.Evaluate(c.Request.Context(), usecase.EvaluateParams{
		EmbeddingSetID: req.EmbeddingSetID,
		MaxIter:        req.MaxIter,
	})
	if err != nil {
		log.WithError(err).Error("create eval failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToClassifierEvalResponse(eval))
}

func (h *Handler) ListEvals(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := domain.EvalListFilter{
		Limit:  limit,
		Offset: offset,
	}
	if raw := c.Query("embedding_set_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid embedding set id"})
			return
		}
		filter.EmbeddingSetID = &id
	}

	evals, total, err := h.classifierUC.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list evals failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.ClassifierEvalResponse, 0, len(evals))
	for _, e := range evals {
		items = append(items, dto.ToClassifierEvalResponse(e))
	}

	c.JSON(http.StatusOK, dto.ListClassifierEvalsResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetEval(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid eval id"})
		return
	}

	eval, err := h.classifierUC.Get(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToClassifierEvalResponse(eval))
}

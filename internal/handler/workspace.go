package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"training-workspace-service/internal/dto"
)

func (h *Handler) InitWorkspace(c *gin.Context) {
	result, err := h.workspaceUC.Init(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("init workspace failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.InitWorkspaceResponse{
		Root:     h.workspaceUC.Layout().Root,
		Created:  result.Created,
		Existing: result.Existing,
	})
}

// VerifyWorkspace reports the workspace state: 200 when every check passes,
// 422 when any check fails.
func (h *Handler) VerifyWorkspace(c *gin.Context) {
	report := h.workspaceUC.Verify(c.Request.Context())

	status := http.StatusOK
	if !report.OK() {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, dto.ToVerifyResponse(report))
}

func (h *Handler) ListDatasets(c *gin.Context) {
	stats := h.workspaceUC.Datasets(c.Request.Context())

	items := make([]dto.DatasetStatsResponse, 0, len(stats))
	for i := range stats {
		items = append(items, dto.ToDatasetStatsResponse(&stats[i]))
	}
	c.JSON(http.StatusOK, dto.ListDatasetsResponse{Items: items, Total: len(items)})
}

func (h *Handler) GetDataset(c *gin.Context) {
	stats, err := h.workspaceUC.Dataset(c.Request.Context(), c.Param("name"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDatasetStatsResponse(stats))
}

package handler

import (
	"github.com/gin-gonic/gin"

	"training-workspace-service/internal/usecase"
)

type Handler struct {
	workspaceUC  *usecase.WorkspaceUseCase
	runUC        *usecase.RunUseCase
	encodingUC   *usecase.EncodingUseCase
	classifierUC *usecase.ClassifierUseCase
}

func New(
	workspaceUC *usecase.WorkspaceUseCase,
	runUC *usecase.RunUseCase,
	encodingUC *usecase.EncodingUseCase,
	classifierUC *usecase.ClassifierUseCase,
) *Handler {
	return &Handler{
		workspaceUC:  workspaceUC,
		runUC:        runUC,
		encodingUC:   encodingUC,
		classifierUC: classifierUC,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Workspace
	r.POST("/workspace/init", h.InitWorkspace)
	r.GET("/workspace/verify", h.VerifyWorkspace)
	r.GET("/datasets", h.ListDatasets)
	r.GET("/datasets/:name", h.GetDataset)

	// Training runs
	r.POST("/runs", h.CreateRun)
	r.GET("/runs", h.ListRuns)
	r.GET("/runs/:id", h.GetRun)
	r.GET("/runs/:id/losses", h.GetRunLosses)
	r.POST("/runs/:id/cancel", h.CancelRun)
	r.DELETE("/runs/:id", h.DeleteRun)

	// Encoded datasets
	r.POST("/encodings", h.CreateEncoding)
	r.GET("/encodings", h.ListEncodings)
	r.GET("/encodings/:id", h.GetEncoding)
	r.DELETE("/encodings/:id", h.DeleteEncoding)

	// Classifier evaluations
	r.POST("/evals", h.CreateEval)
	r.GET("/evals", h.ListEvals)
	r.GET("/evals/:id", h.GetEval)
}

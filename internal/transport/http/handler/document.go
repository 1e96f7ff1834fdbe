package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clonehub/internal/app"
	"clonehub/internal/model"
	"clonehub/internal/transport/http/response"
)

type DocumentHandler struct {
	documents *app.DocumentService
}

type ReportStatusRequest struct {
	Status       string `json:"status" binding:"required,oneof=pending processing processed failed"`
	ErrorMessage string `json:"error_message" binding:"max=512"`
}

func NewDocumentHandler(documents *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, doc)
}

// ReportStatus accepts a status callback from the AI service. The event is
// queued and applied by the status worker.
func (h *DocumentHandler) ReportStatus(c *gin.Context) {
	var req ReportStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	event := model.DocumentStatusEvent{
		DocumentID:   c.Param("id"),
		Status:       model.DocumentStatus(req.Status),
		ErrorMessage: req.ErrorMessage,
		ReportedAt:   time.Now().UTC(),
	}
	if err := h.documents.ReportDocumentStatus(c.Request.Context(), event); err != nil {
		response.Fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, response.APIResponse{Code: response.CodeOK, Message: "accepted"})
}

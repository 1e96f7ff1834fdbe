package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"clonehub/internal/app"
	"clonehub/internal/apperr"
	"clonehub/internal/transport/http/response"
)

type CloneHandler struct {
	clones         *app.CloneService
	documents      *app.DocumentService
	maxUploadBytes int64
}

type CreateCloneRequest struct {
	WorkspaceID *string `json:"workspace_id"`
	Name        string  `json:"name" binding:"required,max=128"`
	BasePrompt  string  `json:"base_prompt"`
	Visibility  string  `json:"visibility" binding:"omitempty,oneof=workspace global"`
}

type UpdateCloneRequest struct {
	WorkspaceID *string `json:"workspace_id"`
	Name        *string `json:"name" binding:"omitempty,max=128"`
	BasePrompt  *string `json:"base_prompt"`
	Visibility  *string `json:"visibility" binding:"omitempty,oneof=workspace global"`
}

func NewCloneHandler(clones *app.CloneService, documents *app.DocumentService, maxUploadBytes int64) *CloneHandler {
	return &CloneHandler{clones: clones, documents: documents, maxUploadBytes: maxUploadBytes}
}

func (h *CloneHandler) Create(c *gin.Context) {
	var req CreateCloneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	clone, err := h.clones.Create(c.Request.Context(), app.CreateCloneInput{
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		BasePrompt:  req.BasePrompt,
		Visibility:  req.Visibility,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, clone)
}

// List filters by the workspace_id query parameter only; without it just
// global clones are returned.
func (h *CloneHandler) List(c *gin.Context) {
	var workspaceID *string
	if w := strings.TrimSpace(c.Query("workspace_id")); w != "" {
		workspaceID = &w
	}
	clones, err := h.clones.List(c.Request.Context(), workspaceID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, clones)
}

func (h *CloneHandler) Get(c *gin.Context) {
	clone, err := h.clones.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, clone)
}

func (h *CloneHandler) Update(c *gin.Context) {
	var req UpdateCloneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	clone, err := h.clones.Update(c.Request.Context(), c.Param("id"), app.UpdateCloneInput{
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		BasePrompt:  req.BasePrompt,
		Visibility:  req.Visibility,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, clone)
}

func (h *CloneHandler) Delete(c *gin.Context) {
	cloneID := c.Param("id")
	if err := h.clones.Delete(c.Request.Context(), cloneID); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"deleted_clone_id": cloneID})
}

func (h *CloneHandler) UploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+(1<<20))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file is required")
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		response.Fail(c, apperr.Validation("file exceeds the upload limit"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "open uploaded file failed")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read uploaded file failed")
		return
	}

	result, err := h.documents.Upload(c.Request.Context(), app.UploadInput{
		CloneID:  c.Param("id"),
		FileName: fileHeader.Filename,
		FileType: fileHeader.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, result)
}

func (h *CloneHandler) ListDocuments(c *gin.Context) {
	docs, err := h.documents.ListDocuments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, docs)
}

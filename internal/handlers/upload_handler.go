package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"uploadgate/internal/appErrors"
	"uploadgate/internal/services"
	"uploadgate/internal/services/dto"
)

type UploadHandler struct {
	service services.UploadService
}

func NewUploadHandler(service services.UploadService) *UploadHandler {
	return &UploadHandler{service: service}
}

func (h *UploadHandler) RegisterRoutes(api *gin.RouterGroup) {
	uploads := api.Group("/uploads")
	{
		uploads.POST("/initiate", h.Initiate)
		uploads.POST("/part-url", h.PartURL)
		uploads.POST("/complete", h.Complete)
		uploads.POST("/abort", h.Abort)
	}
}

// Initiate godoc
// @Summary Start an upload batch
// @Description Applies the upload policy per file and returns presigned credentials. Rejected files are reported per file; accepted siblings proceed.
// @Tags uploads
// @Accept json
// @Produce json
// @Param request body dto.InitiateRequest true "Files to upload"
// @Success 200 {object} dto.InitiateResponse
// @Router /uploads/initiate [post]
func (h *UploadHandler) Initiate(c *gin.Context) {
	var req dto.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErrors.HandleError(c, appErrors.ValidationError("invalid request body: "+err.Error()))
		return
	}

	// Authenticated identity wins over the body field
	if callerID := c.GetString("userID"); callerID != "" {
		req.CallerID = callerID
	}

	resp, err := h.service.Initiate(c.Request.Context(), &req)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// PartURL godoc
// @Summary Presign one part of a chunked upload
// @Tags uploads
// @Accept json
// @Produce json
// @Param request body dto.PartURLRequest true "Session and part number"
// @Success 200 {object} dto.PartURLResponse
// @Router /uploads/part-url [post]
func (h *UploadHandler) PartURL(c *gin.Context) {
	var req dto.PartURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErrors.HandleError(c, appErrors.ValidationError("invalid request body: "+err.Error()))
		return
	}

	url, err := h.service.GeneratePartUploadURL(c.Request.Context(), req.SessionID, req.PartNumber)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PartURLResponse{Success: true, URL: url})
}

// Complete godoc
// @Summary Finalize a chunked upload
// @Description Parts may be listed in any order; completion is idempotent.
// @Tags uploads
// @Accept json
// @Produce json
// @Param request body dto.CompleteRequest true "Session and part tags"
// @Success 200 {object} dto.StatusResponse
// @Router /uploads/complete [post]
func (h *UploadHandler) Complete(c *gin.Context) {
	var req dto.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErrors.HandleError(c, appErrors.ValidationError("invalid request body: "+err.Error()))
		return
	}

	if err := h.service.CompleteMultipartUpload(c.Request.Context(), req.SessionID, req.Parts); err != nil {
		appErrors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Success: true})
}

// Abort godoc
// @Summary Abort a chunked upload
// @Description Best-effort against the provider; the local session is marked failed regardless.
// @Tags uploads
// @Accept json
// @Produce json
// @Param request body dto.AbortRequest true "Session to abort"
// @Success 200 {object} dto.StatusResponse
// @Router /uploads/abort [post]
func (h *UploadHandler) Abort(c *gin.Context) {
	var req dto.AbortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErrors.HandleError(c, appErrors.ValidationError("invalid request body: "+err.Error()))
		return
	}

	if err := h.service.AbortMultipartUpload(c.Request.Context(), req.SessionID); err != nil {
		appErrors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Success: true})
}

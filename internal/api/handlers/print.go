package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"barcode-central/internal/api/middleware"
	"barcode-central/internal/job"
	"barcode-central/internal/preview"
	"barcode-central/internal/template"
)

type ValidatePrintResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

type PreviewOnlyRequest struct {
	Template  string            `json:"template" binding:"required"`
	Variables map[string]string `json:"variables"`
	Size      string            `json:"size"`
	DPI       int               `json:"dpi"`
	Format    string            `json:"format"`
}

type PrintHandler struct {
	runner    *job.Runner
	templates *template.Store
	previews  *preview.Generator
}

func NewPrintHandler(runner *job.Runner, templates *template.Store, previews *preview.Generator) *PrintHandler {
	return &PrintHandler{
		runner:    runner,
		templates: templates,
		previews:  previews,
	}
}

// Print executes a full print job. A failed job still responds with
// the job result so the caller gets the recorded job id.
func (h *PrintHandler) Print(c *gin.Context) {
	var req job.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	req.User = middleware.CurrentUser(c)

	result, err := h.runner.Execute(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusForError(err), result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ValidatePrint runs the pre-flight checks without sending anything
// and without recording history.
func (h *PrintHandler) ValidatePrint(c *gin.Context) {
	var req job.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if err := h.runner.Validate(req); err != nil {
		c.JSON(http.StatusOK, ValidatePrintResponse{Valid: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ValidatePrintResponse{Valid: true})
}

// PreviewOnly renders a template and returns the label image without
// touching a printer or the history.
func (h *PrintHandler) PreviewOnly(c *gin.Context) {
	if h.previews == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "preview generation is disabled"})
		return
	}

	var req PreviewOnlyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	info, err := h.templates.Get(req.Template)
	if err != nil {
		respondError(c, err)
		return
	}

	rendered, err := template.Render(info.Content, req.Variables)
	if err != nil {
		respondError(c, err)
		return
	}

	size := req.Size
	if size == "" {
		size = info.Size
	}
	if size == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "template declares no size and none was given"})
		return
	}

	dpi := req.DPI
	if dpi == 0 {
		dpi = 203
	}
	format := req.Format
	if format == "" {
		format = preview.FormatPNG
	}

	data, err := h.previews.Generate(c.Request.Context(), rendered, size, dpi, format)
	if err != nil {
		respondError(c, err)
		return
	}

	contentType := "image/png"
	if format == preview.FormatPDF {
		contentType = "application/pdf"
	}
	c.Data(http.StatusOK, contentType, data)
}

// ServePreview returns a previously generated preview file.
func (h *PrintHandler) ServePreview(c *gin.Context) {
	if h.previews == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "preview generation is disabled"})
		return
	}

	path := h.previews.Path(c.Param("filename"))
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "preview not found"})
		return
	}

	c.File(path)
}

func RegisterPrintRoutes(router *gin.RouterGroup, handler *PrintHandler) {
	router.POST("/print", handler.Print)
	router.POST("/print/validate", handler.ValidatePrint)
	router.POST("/print/preview-only", handler.PreviewOnly)
	router.GET("/previews/:filename", handler.ServePreview)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"barcode-central/internal/template"
)

type CreateTemplateRequest struct {
	Name        string   `json:"name" binding:"required"`
	Content     string   `json:"content" binding:"required"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Size        string   `json:"size"`
	SizeUnit    string   `json:"size_unit"`
	Variables   []string `json:"variables"`
}

type UpdateTemplateRequest struct {
	Content     string   `json:"content" binding:"required"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Size        string   `json:"size"`
	SizeUnit    string   `json:"size_unit"`
	Variables   []string `json:"variables"`
}

type ValidateTemplateRequest struct {
	Content string `json:"content" binding:"required"`
}

type ValidateTemplateResponse struct {
	Valid     bool     `json:"valid"`
	Error     string   `json:"error,omitempty"`
	Variables []string `json:"variables"`
}

type TemplateListResponse struct {
	Templates []template.Info `json:"templates"`
	Count     int             `json:"count"`
}

type TemplateHandler struct {
	store *template.Store
}

func NewTemplateHandler(store *template.Store) *TemplateHandler {
	return &TemplateHandler{store: store}
}

func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	templates, err := h.store.List()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TemplateListResponse{Templates: templates, Count: len(templates)})
}

func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	info, err := h.store.Get(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Name
	}

	info, err := h.store.Create(req.Name, req.Content, template.Metadata{
		Name:        displayName,
		Description: req.Description,
		Size:        req.Size,
		SizeUnit:    req.SizeUnit,
		Variables:   req.Variables,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, info)
}

func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	info, err := h.store.Update(c.Param("name"), req.Content, template.Metadata{
		Name:        req.DisplayName,
		Description: req.Description,
		Size:        req.Size,
		SizeUnit:    req.SizeUnit,
		Variables:   req.Variables,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	if err := h.store.Delete(c.Param("name")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "template deleted"})
}

// ValidateTemplate checks a body without saving it, reporting the
// first problem found plus the placeholders the body declares.
func (h *TemplateHandler) ValidateTemplate(c *gin.Context) {
	var req ValidateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	resp := ValidateTemplateResponse{
		Valid:     true,
		Variables: template.ExtractVariables(req.Content),
	}
	if err := template.Validate(req.Content); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}

	c.JSON(http.StatusOK, resp)
}

func RegisterTemplateRoutes(router *gin.RouterGroup, handler *TemplateHandler) {
	templates := router.Group("/templates")
	{
		templates.GET("", handler.ListTemplates)
		templates.POST("", handler.CreateTemplate)
		templates.POST("/validate", handler.ValidateTemplate)
		templates.GET("/:name", handler.GetTemplate)
		templates.PUT("/:name", handler.UpdateTemplate)
		templates.DELETE("/:name", handler.DeleteTemplate)
	}
}

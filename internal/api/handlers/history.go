package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"barcode-central/internal/api/middleware"
	"barcode-central/internal/history"
	"barcode-central/internal/job"
)

type HistoryListResponse struct {
	Entries []history.Entry `json:"entries"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

type CleanupRequest struct {
	Days int `json:"days" binding:"required,min=1"`
}

type CleanupResponse struct {
	Removed int `json:"removed"`
}

type ReprintRequest struct {
	PrinterID string `json:"printer_id"`
}

type HistoryHandler struct {
	store  *history.Store
	runner *job.Runner
}

func NewHistoryHandler(store *history.Store, runner *job.Runner) *HistoryHandler {
	return &HistoryHandler{store: store, runner: runner}
}

func (h *HistoryHandler) ListEntries(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := history.Filter{
		Template:  c.Query("template"),
		PrinterID: c.Query("printer_id"),
		Status:    c.Query("status"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}

	entries, total, err := h.store.GetEntries(limit, offset, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, HistoryListResponse{
		Entries: entries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

func (h *HistoryHandler) GetEntry(c *gin.Context) {
	entry, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (h *HistoryHandler) DeleteEntry(c *gin.Context) {
	if err := h.store.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "entry deleted"})
}

func (h *HistoryHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "query parameter q is required"})
		return
	}

	entries, err := h.store.Search(query, c.Query("field"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

func (h *HistoryHandler) Statistics(c *gin.Context) {
	stats, err := h.store.Statistics()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *HistoryHandler) Cleanup(c *gin.Context) {
	var req CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	removed, err := h.store.Cleanup(req.Days)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, CleanupResponse{Removed: removed})
}

// Export writes the history in json or csv form. CSV always includes
// the header row, even for an empty history.
func (h *HistoryHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	switch format {
	case "json":
		entries, err := h.store.ExportJSON()
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="history.json"`)
		c.JSON(http.StatusOK, gin.H{"entries": entries})

	case "csv":
		out, err := h.store.ExportCSV()
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="history.csv"`)
		c.Data(http.StatusOK, "text/csv", []byte(out))

	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "format must be json or csv"})
	}
}

// Reprint re-runs a recorded job, optionally on a different printer.
func (h *HistoryHandler) Reprint(c *gin.Context) {
	var req ReprintRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.runner.Reprint(c.Request.Context(), c.Param("id"), req.PrinterID, middleware.CurrentUser(c))
	if err != nil {
		if result != nil {
			c.JSON(statusForError(err), result)
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func RegisterHistoryRoutes(router *gin.RouterGroup, handler *HistoryHandler) {
	hist := router.Group("/history")
	{
		hist.GET("", handler.ListEntries)
		hist.GET("/search", handler.Search)
		hist.GET("/statistics", handler.Statistics)
		hist.POST("/cleanup", handler.Cleanup)
		hist.GET("/export", handler.Export)
		hist.GET("/:id", handler.GetEntry)
		hist.DELETE("/:id", handler.DeleteEntry)
		hist.POST("/:id/reprint", handler.Reprint)
	}
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"barcode-central/internal/printer"
)

type PrinterListResponse struct {
	Printers []printer.Printer `json:"printers"`
	Count    int               `json:"count"`
}

type CompatibilityRequest struct {
	Size string `json:"size" binding:"required"`
}

type CompatibilityResponse struct {
	Compatible bool   `json:"compatible"`
	Message    string `json:"message,omitempty"`
}

type TestConnectionResponse struct {
	Reachable bool   `json:"reachable"`
	Message   string `json:"message,omitempty"`
}

type PrinterHandler struct {
	registry    *printer.Registry
	transport   *printer.Transport
	testTimeout time.Duration
}

func NewPrinterHandler(registry *printer.Registry, transport *printer.Transport, testTimeout time.Duration) *PrinterHandler {
	return &PrinterHandler{
		registry:    registry,
		transport:   transport,
		testTimeout: testTimeout,
	}
}

func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	printers, err := h.registry.List()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, PrinterListResponse{Printers: printers, Count: len(printers)})
}

func (h *PrinterHandler) GetPrinter(c *gin.Context) {
	p, err := h.registry.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *PrinterHandler) AddPrinter(c *gin.Context) {
	var req printer.AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	p, err := h.registry.Add(req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

func (h *PrinterHandler) UpdatePrinter(c *gin.Context) {
	var upd printer.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	p, err := h.registry.Update(c.Param("id"), upd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *PrinterHandler) DeletePrinter(c *gin.Context) {
	if err := h.registry.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "printer deleted"})
}

// TestPrinter dials the printer without sending a payload. An
// unreachable printer is a result, not a request error.
func (h *PrinterHandler) TestPrinter(c *gin.Context) {
	err := h.transport.TestConnection(c.Param("id"), h.testTimeout)
	if err != nil {
		if statusForError(err) == http.StatusNotFound {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, TestConnectionResponse{Reachable: false, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, TestConnectionResponse{Reachable: true})
}

func (h *PrinterHandler) CheckCompatibility(c *gin.Context) {
	var req CompatibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.registry.ValidateCompatibility(c.Param("id"), req.Size); err != nil {
		if statusForError(err) == http.StatusNotFound {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, CompatibilityResponse{Compatible: false, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, CompatibilityResponse{Compatible: true})
}

func RegisterPrinterRoutes(router *gin.RouterGroup, handler *PrinterHandler) {
	printers := router.Group("/printers")
	{
		printers.GET("", handler.ListPrinters)
		printers.POST("", handler.AddPrinter)
		printers.GET("/:id", handler.GetPrinter)
		printers.PUT("/:id", handler.UpdatePrinter)
		printers.DELETE("/:id", handler.DeletePrinter)
		printers.POST("/:id/test", handler.TestPrinter)
		printers.POST("/:id/compatibility", handler.CheckCompatibility)
	}
}

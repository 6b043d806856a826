package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"barcode-central/internal/history"
	"barcode-central/internal/job"
	"barcode-central/internal/label"
	"barcode-central/internal/preview"
	"barcode-central/internal/printer"
	"barcode-central/internal/template"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError maps domain error kinds onto HTTP statuses. Handlers
// never inspect error strings; classification happens on sentinels.
func respondError(c *gin.Context, err error) {
	c.JSON(statusForError(err), ErrorResponse{Error: err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, template.ErrTemplateNotFound),
		errors.Is(err, printer.ErrPrinterNotFound),
		errors.Is(err, history.ErrEntryNotFound):
		return http.StatusNotFound

	case errors.Is(err, template.ErrTemplateExists),
		errors.Is(err, printer.ErrPrinterExists):
		return http.StatusConflict

	case errors.Is(err, job.ErrValidation),
		errors.Is(err, template.ErrInvalidName),
		errors.Is(err, template.ErrMissingVariable),
		errors.Is(err, template.ErrInvalidContent),
		errors.Is(err, template.ErrUnbalancedTemplate),
		errors.Is(err, printer.ErrInvalidPrinter),
		errors.Is(err, printer.ErrPrinterDisabled),
		errors.Is(err, printer.ErrIncompatibleSize),
		errors.Is(err, printer.ErrEmptyPayload),
		errors.Is(err, printer.ErrPayloadTooLarge),
		errors.Is(err, printer.ErrInvalidQuantity),
		errors.Is(err, label.ErrInvalidSize),
		errors.Is(err, preview.ErrInvalidInput),
		errors.Is(err, preview.ErrUnsupportedDPI):
		return http.StatusBadRequest

	case errors.Is(err, printer.ErrConnectTimeout):
		return http.StatusGatewayTimeout

	case errors.Is(err, printer.ErrConnectionRefused),
		errors.Is(err, printer.ErrSocket),
		errors.Is(err, preview.ErrUnavailable):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

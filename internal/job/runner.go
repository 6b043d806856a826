package job

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"barcode-central/internal/history"
	"barcode-central/internal/printer"
	"barcode-central/internal/template"
)

var ErrValidation = errors.New("print job validation failed")

// PreviewGenerator renders a label image for a job. Preview failures
// never fail the job itself.
type PreviewGenerator interface {
	Save(ctx context.Context, zpl, sizeStr string, dpi int, format string) (string, error)
}

// Request describes one print job.
type Request struct {
	Template        string            `json:"template"`
	PrinterID       string            `json:"printer_id"`
	Variables       map[string]string `json:"variables"`
	Quantity        int               `json:"quantity"`
	GeneratePreview bool              `json:"generate_preview"`
	User            string            `json:"-"`
	ReprintOf       string            `json:"-"`
}

// Result reports the outcome of an executed job.
type Result struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	LabelSize   string `json:"label_size,omitempty"`
	RenderedZPL string `json:"rendered_zpl,omitempty"`
	PreviewFile string `json:"preview_filename,omitempty"`
}

// Runner drives the print pipeline: validate, render, preview, send.
// Every execution leaves exactly one history entry, success or failed,
// including jobs that never made it past validation.
type Runner struct {
	templates *template.Store
	printers  *printer.Registry
	transport *printer.Transport
	history   *history.Store
	previews  PreviewGenerator
}

func NewRunner(templates *template.Store, printers *printer.Registry, transport *printer.Transport, hist *history.Store, previews PreviewGenerator) *Runner {
	return &Runner{
		templates: templates,
		printers:  printers,
		transport: transport,
		history:   hist,
		previews:  previews,
	}
}

// Validate runs the pre-flight checks without sending anything and
// without touching history.
func (r *Runner) Validate(req Request) error {
	_, _, _, err := r.prepare(req)
	return err
}

// prepare resolves and validates the job, returning the template, the
// printer and the rendered ZPL.
func (r *Runner) prepare(req Request) (*template.Info, *printer.Printer, string, error) {
	if req.Quantity < 1 || req.Quantity > printer.MaxCopies {
		return nil, nil, "", fmt.Errorf("%w: quantity must be between 1 and %d, got %d", ErrValidation, printer.MaxCopies, req.Quantity)
	}

	tmpl, err := r.templates.Get(req.Template)
	if err != nil {
		return nil, nil, "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	p, err := r.printers.Get(req.PrinterID)
	if err != nil {
		return nil, nil, "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !p.Enabled {
		return nil, nil, "", fmt.Errorf("%w: printer %s is disabled", ErrValidation, p.ID)
	}

	if tmpl.Size != "" {
		if err := r.printers.ValidateCompatibility(p.ID, tmpl.Size); err != nil {
			return nil, nil, "", fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	rendered, err := template.Render(tmpl.Content, req.Variables)
	if err != nil {
		return nil, nil, "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return tmpl, p, rendered, nil
}

// Execute runs the full pipeline. The returned error reflects the
// failure stage; the history entry is written either way.
func (r *Runner) Execute(ctx context.Context, req Request) (*Result, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	jobID := uuid.New().String()
	entry := history.Entry{
		ID:        jobID,
		Template:  req.Template,
		PrinterID: req.PrinterID,
		Variables: req.Variables,
		Quantity:  req.Quantity,
		User:      req.User,
		ReprintOf: req.ReprintOf,
	}

	tmpl, p, rendered, err := r.prepare(req)
	if tmpl != nil {
		entry.TemplateName = tmpl.Name
		entry.LabelSize = tmpl.Size
	}
	if p != nil {
		entry.PrinterName = p.Name
	}
	if err != nil {
		return r.fail(entry, err)
	}
	entry.RenderedZPL = rendered

	if req.GeneratePreview && r.previews != nil && tmpl.Size != "" {
		filename, perr := r.previews.Save(ctx, rendered, tmpl.Size, p.DPI, "")
		if perr != nil {
			log.Printf("[job] preview generation failed for %s: %v", jobID, perr)
		} else {
			entry.PreviewFile = filename
		}
	}

	if err := r.transport.Send(p.ID, rendered, req.Quantity); err != nil {
		return r.fail(entry, err)
	}

	entry.Status = history.StatusSuccess
	r.record(entry)

	return &Result{
		JobID:       jobID,
		Status:      history.StatusSuccess,
		Message:     fmt.Sprintf("sent %d label(s) to %s", req.Quantity, p.Name),
		LabelSize:   entry.LabelSize,
		RenderedZPL: rendered,
		PreviewFile: entry.PreviewFile,
	}, nil
}

// Reprint re-executes a recorded job. The printer can be overridden;
// everything else comes from the original entry.
func (r *Runner) Reprint(ctx context.Context, entryID, printerID, user string) (*Result, error) {
	original, err := r.history.Get(entryID)
	if err != nil {
		return nil, err
	}

	req := Request{
		Template:        original.Template,
		PrinterID:       original.PrinterID,
		Variables:       original.Variables,
		Quantity:        original.Quantity,
		GeneratePreview: original.PreviewFile != "",
		User:            user,
		ReprintOf:       entryID,
	}
	if printerID != "" {
		req.PrinterID = printerID
	}

	return r.Execute(ctx, req)
}

func (r *Runner) fail(entry history.Entry, cause error) (*Result, error) {
	entry.Status = history.StatusFailed
	entry.ErrorMessage = cause.Error()
	r.record(entry)

	return &Result{
		JobID:   entry.ID,
		Status:  history.StatusFailed,
		Message: cause.Error(),
	}, cause
}

// record writes the history entry. History being unwritable must not
// mask the job outcome, so failures only log.
func (r *Runner) record(entry history.Entry) {
	if _, err := r.history.Add(entry); err != nil {
		log.Printf("[job] failed to record history entry %s: %v", entry.ID, err)
	}
}

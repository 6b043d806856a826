package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"barcode-central/internal/label"
)

var (
	ErrUnavailable    = errors.New("preview service unavailable")
	ErrInvalidInput   = errors.New("preview rejected input")
	ErrUnsupportedDPI = errors.New("no dpmm mapping for dpi")
)

const (
	DefaultBaseURL = "http://api.labelary.com/v1/printers"

	FormatPNG = "png"
	FormatPDF = "pdf"
)

// dpmmByDPI maps printer DPI to the dots-per-millimeter values the
// rendering API understands.
var dpmmByDPI = map[int]int{
	152: 6,
	203: 8,
	300: 12,
	600: 24,
}

// Generator renders ZPL into images through the Labelary HTTP API and
// keeps the results in a local previews directory.
type Generator struct {
	baseURL    string
	httpClient *http.Client
	dir        string
}

func NewGenerator(baseURL string, timeout time.Duration, dir string) (*Generator, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create previews directory: %w", err)
	}

	return &Generator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		dir:        dir,
	}, nil
}

// MapDPIToDpmm resolves a printer DPI to the API's dpmm scale.
func MapDPIToDpmm(dpi int) (int, error) {
	dpmm, ok := dpmmByDPI[dpi]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedDPI, dpi)
	}
	return dpmm, nil
}

// Generate renders zpl at the given label size and DPI and returns the
// raw image bytes.
func (g *Generator) Generate(ctx context.Context, zpl, sizeStr string, dpi int, format string) ([]byte, error) {
	if strings.TrimSpace(zpl) == "" {
		return nil, fmt.Errorf("%w: empty zpl", ErrInvalidInput)
	}
	if format == "" {
		format = FormatPNG
	}

	dpmm, err := MapDPIToDpmm(dpi)
	if err != nil {
		return nil, err
	}

	size, err := label.SizeFromString(sizeStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	w, h, err := size.ToInches()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	url := fmt.Sprintf("%s/%ddpmm/labels/%sx%s/0/", g.baseURL, dpmm, trimFloat(w), trimFloat(h))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(zpl))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if format == FormatPDF {
		req.Header.Set("Accept", "application/pdf")
	} else {
		req.Header.Set("Accept", "image/png")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, strings.TrimSpace(string(body)))
	default:
		return nil, fmt.Errorf("%w: http %d", ErrUnavailable, resp.StatusCode)
	}
}

// Save renders the preview and writes it into the previews directory
// under a fresh uuid filename, returning the filename.
func (g *Generator) Save(ctx context.Context, zpl, sizeStr string, dpi int, format string) (string, error) {
	if format == "" {
		format = FormatPNG
	}

	data, err := g.Generate(ctx, zpl, sizeStr, dpi, format)
	if err != nil {
		return "", err
	}

	filename := uuid.New().String() + "." + format
	if err := os.WriteFile(filepath.Join(g.dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write preview: %w", err)
	}

	log.Printf("[preview] saved %s (%d bytes)", filename, len(data))
	return filename, nil
}

// Path returns the on-disk location of a saved preview.
func (g *Generator) Path(filename string) string {
	return filepath.Join(g.dir, filepath.Base(filename))
}

// Cleanup deletes previews older than maxAge and reports how many
// files were removed.
func (g *Generator) Cleanup(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read previews directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(g.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		log.Printf("[preview] cleaned up %d stale previews", removed)
	}
	return removed, nil
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

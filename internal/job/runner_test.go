package job

import (
	"context"
	"io"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barcode-central/internal/history"
	"barcode-central/internal/printer"
	"barcode-central/internal/template"
)

const jobTemplateContent = "^XA\n^FO50,50^FD{{product_name}}^FS\n^XZ"

type fixture struct {
	runner   *Runner
	history  *history.Store
	registry *printer.Registry
}

// startListener runs a throwaway TCP sink and returns its port plus a
// thread-safe payload count getter.
func startListener(t *testing.T) (int, func() int) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	count := 0
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_, _ = io.Copy(io.Discard, conn)
			conn.Close()
			mu.Lock()
			count++
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		listener.Close()
		wg.Wait()
	})
	received := func() int {
		mu.Lock()
		defer mu.Unlock()
		return count
	}
	return listener.Addr().(*net.TCPAddr).Port, received
}

func newFixture(t *testing.T, port int, printerEnabled bool) fixture {
	t.Helper()
	dir := t.TempDir()

	templates, err := template.NewStore(filepath.Join(dir, "templates"))
	require.NoError(t, err)
	_, err = templates.Create("shipping"+template.Suffix, jobTemplateContent, template.Metadata{
		Name: "Shipping", Size: "4x6",
	})
	require.NoError(t, err)

	registry := printer.NewRegistry(filepath.Join(dir, "printers.json"))
	_, err = registry.Add(printer.AddRequest{
		ID: "zebra-1", Name: "Zebra", IP: "127.0.0.1", Port: port,
		SupportedSizes: []printer.SizeSpec{printer.SizeSpecFromString("4x6")},
		DPI:            203,
		Enabled:        &printerEnabled,
	})
	require.NoError(t, err)

	hist := history.NewStore(filepath.Join(dir, "history.json"), 0)
	transport := printer.NewTransport(registry, 2*time.Second, 0)

	return fixture{
		runner:   NewRunner(templates, registry, transport, hist, nil),
		history:  hist,
		registry: registry,
	}
}

func validRequest() Request {
	return Request{
		Template:  "shipping",
		PrinterID: "zebra-1",
		Variables: map[string]string{"product_name": "Widget"},
		Quantity:  1,
		User:      "alice",
	}
}

func historyEntries(t *testing.T, hist *history.Store) []history.Entry {
	t.Helper()
	entries, _, err := hist.GetEntries(0, 0, history.Filter{})
	require.NoError(t, err)
	return entries
}

func TestExecuteSuccess(t *testing.T) {
	port, received := startListener(t)
	fx := newFixture(t, port, true)

	result, err := fx.runner.Execute(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, history.StatusSuccess, result.Status)
	assert.Contains(t, result.RenderedZPL, "^FO50,50^FDWidget^FS")
	assert.Equal(t, "4x6", result.LabelSize)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && received() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	require.NotZero(t, received())

	entries := historyEntries(t, fx.history)
	require.Len(t, entries, 1)
	assert.Equal(t, history.StatusSuccess, entries[0].Status)
	assert.Equal(t, "alice", entries[0].User)
	assert.Equal(t, "Shipping", entries[0].TemplateName)
	assert.Equal(t, "Zebra", entries[0].PrinterName)
	assert.Equal(t, result.JobID, entries[0].ID)
}

func TestExecuteDisabledPrinterRecordsFailureWithoutDialing(t *testing.T) {
	// Port 9100 with nothing listening: a dial attempt would fail
	// differently, so a disabled-printer error proves no dial happened.
	fx := newFixture(t, 9100, false)

	result, err := fx.runner.Execute(context.Background(), validRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, history.StatusFailed, result.Status)

	entries := historyEntries(t, fx.history)
	require.Len(t, entries, 1)
	assert.Equal(t, history.StatusFailed, entries[0].Status)
	assert.Contains(t, entries[0].ErrorMessage, "disabled")
}

func TestExecuteMissingTemplateRecordsFailure(t *testing.T) {
	fx := newFixture(t, 9100, true)

	req := validRequest()
	req.Template = "ghost"
	_, err := fx.runner.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation)

	entries := historyEntries(t, fx.history)
	require.Len(t, entries, 1)
	assert.Equal(t, "ghost", entries[0].Template)
	assert.Equal(t, history.StatusFailed, entries[0].Status)
}

func TestExecuteMissingVariableRecordsFailure(t *testing.T) {
	fx := newFixture(t, 9100, true)

	req := validRequest()
	req.Variables = nil
	_, err := fx.runner.Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "product_name")

	entries := historyEntries(t, fx.history)
	require.Len(t, entries, 1)
	assert.Equal(t, history.StatusFailed, entries[0].Status)
}

func TestExecuteSendFailureRecordsFailure(t *testing.T) {
	// Reserve a port and close it so the send is refused.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	fx := newFixture(t, port, true)

	_, err = fx.runner.Execute(context.Background(), validRequest())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)

	entries := historyEntries(t, fx.history)
	require.Len(t, entries, 1)
	assert.Equal(t, history.StatusFailed, entries[0].Status)
	assert.NotEmpty(t, entries[0].RenderedZPL)
}

func TestValidateDoesNotTouchHistory(t *testing.T) {
	fx := newFixture(t, 9100, true)

	require.NoError(t, fx.runner.Validate(validRequest()))

	req := validRequest()
	req.Quantity = 101
	assert.ErrorIs(t, fx.runner.Validate(req), ErrValidation)

	assert.Empty(t, historyEntries(t, fx.history))
}

func TestReprint(t *testing.T) {
	port, _ := startListener(t)
	fx := newFixture(t, port, true)

	result, err := fx.runner.Execute(context.Background(), validRequest())
	require.NoError(t, err)

	reprint, err := fx.runner.Reprint(context.Background(), result.JobID, "", "bob")
	require.NoError(t, err)
	assert.Equal(t, history.StatusSuccess, reprint.Status)

	entries := historyEntries(t, fx.history)
	require.Len(t, entries, 2)

	recorded, err := fx.history.Get(reprint.JobID)
	require.NoError(t, err)
	assert.Equal(t, result.JobID, recorded.ReprintOf)
	assert.Equal(t, "bob", recorded.User)

	_, err = fx.runner.Reprint(context.Background(), "ghost", "", "bob")
	assert.ErrorIs(t, err, history.ErrEntryNotFound)
}

package preview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBuildsCorrectURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	g, err := NewGenerator(srv.URL, time.Second, t.TempDir())
	require.NoError(t, err)

	data, err := g.Generate(context.Background(), "^XA^XZ", "4x6", 203, FormatPNG)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
	assert.Equal(t, "/8dpmm/labels/4x6/0/", gotPath)
}

func TestGenerateMapsMillimeterSizes(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	g, err := NewGenerator(srv.URL, time.Second, t.TempDir())
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "^XA^XZ", "101.6x152.4mm", 300, "")
	require.NoError(t, err)
	assert.Equal(t, "/12dpmm/labels/4x6/0/", gotPath)
}

func TestGenerateClassifiesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad zpl", http.StatusBadRequest)
	}))
	defer srv.Close()

	g, err := NewGenerator(srv.URL, time.Second, t.TempDir())
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "^XA^XZ", "4x6", 203, FormatPNG)
	assert.ErrorIs(t, err, ErrInvalidInput)

	srv.Close()
	_, err = g.Generate(context.Background(), "^XA^XZ", "4x6", 203, FormatPNG)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = g.Generate(context.Background(), "^XA^XZ", "4x6", 180, FormatPNG)
	assert.ErrorIs(t, err, ErrUnsupportedDPI)

	_, err = g.Generate(context.Background(), "  ", "4x6", 203, FormatPNG)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSaveAndCleanup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("img"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	g, err := NewGenerator(srv.URL, time.Second, dir)
	require.NoError(t, err)

	filename, err := g.Save(context.Background(), "^XA^XZ", "4x6", 203, FormatPNG)
	require.NoError(t, err)
	assert.True(t, filepath.Ext(filename) == ".png")

	_, err = os.Stat(g.Path(filename))
	require.NoError(t, err)

	// Nothing is old enough to remove yet.
	removed, err := g.Cleanup(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = g.Cleanup(-time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

package template

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContent = "^XA\n^FO50,50^A0N,40,40^FD{{product_name}}^FS\n^FO50,120^FD{{sku}}^FS\n^XZ"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Create("shipping"+Suffix, testContent, Metadata{
		Name: "Shipping", Size: "4x6",
	})
	require.NoError(t, err)
	assert.Equal(t, "shipping"+Suffix, created.Filename)
	assert.Equal(t, "Shipping", created.Name)
	assert.Equal(t, "inches", created.SizeUnit)
	assert.Equal(t, "101.6x152.4mm", created.SizeMM)
	assert.Equal(t, []string{"product_name", "sku"}, created.Variables)
	assert.NotEmpty(t, created.Created)

	got, err := store.Get("shipping")
	require.NoError(t, err)
	assert.Contains(t, got.Content, "^FO50,50")
}

func TestCreateDuplicate(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create("dup"+Suffix, testContent, Metadata{})
	require.NoError(t, err)

	_, err = store.Create("dup"+Suffix, testContent, Metadata{})
	assert.ErrorIs(t, err, ErrTemplateExists)
}

func TestCreateRequiresSuffix(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create("bare", testContent, Metadata{})
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = store.Create("bare"+Suffix, testContent, Metadata{})
	require.NoError(t, err)

	// Lookups still accept the bare form.
	got, err := store.Get("bare")
	require.NoError(t, err)
	assert.Equal(t, "bare"+Suffix, got.Filename)
}

func TestCreateRejectsUnbalancedZPL(t *testing.T) {
	store := newTestStore(t)

	for _, content := range []string{
		"^FO50,50^FDx^FS",
		"^XA^FO50,50^FDx^FS",
		"^XA^XA^FO50,50^FDx^FS^XZ",
		"",
	} {
		_, err := store.Create("bad"+Suffix, content, Metadata{})
		assert.ErrorIs(t, err, ErrInvalidContent, "content: %q", content)
	}
}

func TestCreateRejectsOversizedContent(t *testing.T) {
	store := newTestStore(t)

	content := "^XA" + strings.Repeat("^FDx^FS", 20000) + "^XZ"
	require.Greater(t, len(content), maxContentChars)

	_, err := store.Create("big"+Suffix, content, Metadata{})
	assert.ErrorIs(t, err, ErrInvalidContent)
}

func TestCreateRejectsInvalidSize(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create("bad-size"+Suffix, testContent, Metadata{Size: "40x60"})
	assert.Error(t, err)
}

func TestUpdatePreservesCreatedTimestamp(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Create("t"+Suffix, testContent, Metadata{Name: "v1"})
	require.NoError(t, err)

	updated, err := store.Update("t", testContent, Metadata{Name: "v2"})
	require.NoError(t, err)
	assert.Equal(t, created.Created, updated.Created)
	assert.Equal(t, "v2", updated.Name)
}

func TestUpdateMissingTemplate(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Update("ghost", testContent, Metadata{})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create("t"+Suffix, testContent, Metadata{})
	require.NoError(t, err)
	require.NoError(t, store.Delete("t"))

	_, err = store.Get("t")
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	assert.ErrorIs(t, store.Delete("t"), ErrTemplateNotFound)
}

func TestListReportsUnreadableEntriesInline(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.Create("good"+Suffix, testContent, Metadata{Name: "Good"})
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"+Suffix), 0o755))

	infos, err := store.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "Good", infos[0].Name)
	assert.Empty(t, infos[0].Content)
}

func TestRenderStrict(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create("t"+Suffix, testContent, Metadata{})
	require.NoError(t, err)

	out, err := store.Render("t", map[string]string{
		"product_name": "Widget",
		"sku":          "W-100",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "^FO50,50^A0N,40,40^FDWidget^FS")
	assert.Contains(t, out, "^FDW-100^FS")
	assert.NotContains(t, out, "{{")

	// Deterministic for identical input.
	again, err := store.Render("t", map[string]string{
		"product_name": "Widget",
		"sku":          "W-100",
	})
	require.NoError(t, err)
	assert.Equal(t, out, again)

	_, err = store.Render("t", map[string]string{"product_name": "Widget"})
	require.ErrorIs(t, err, ErrMissingVariable)
	assert.Contains(t, err.Error(), "sku")
}

func TestRenderSyntaxErrors(t *testing.T) {
	_, err := Render("^XA^FD{{name^FS^XZ", map[string]string{"name": "x"})
	assert.ErrorIs(t, err, ErrUnbalancedTemplate)

	_, err = Render("^XA^FDname}}^FS^XZ", nil)
	assert.ErrorIs(t, err, ErrUnbalancedTemplate)
}

func TestExtractVariables(t *testing.T) {
	vars := ExtractVariables("^XA^FD{{b}}^FS^FD{{ a }}^FS^FD{{b}}^FS^XZ")
	assert.Equal(t, []string{"a", "b"}, vars)

	assert.Empty(t, ExtractVariables("^XA^FDstatic^FS^XZ"))
}

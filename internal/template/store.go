package template

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"barcode-central/internal/label"
)

var (
	ErrTemplateNotFound   = errors.New("template not found")
	ErrTemplateExists     = errors.New("template already exists")
	ErrInvalidName        = errors.New("invalid template name")
	ErrMissingVariable    = errors.New("missing required variable")
	ErrInvalidContent     = errors.New("invalid zpl content")
	ErrUnbalancedTemplate = errors.New("unbalanced placeholder syntax")
)

const (
	// Suffix is the required template file extension.
	Suffix = ".zpl.j2"

	// maxContentChars caps a template body. Anything larger is almost
	// certainly not a label.
	maxContentChars = 100000
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// Info is a template as reported by the store: stored metadata merged
// with fields derived from the body. Err is set for entries that could
// not be read during a listing.
type Info struct {
	Filename    string   `json:"filename"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Size        string   `json:"size,omitempty"`
	SizeUnit    string   `json:"size_unit,omitempty"`
	SizeWidth   float64  `json:"size_width,omitempty"`
	SizeHeight  float64  `json:"size_height,omitempty"`
	SizeMM      string   `json:"size_mm,omitempty"`
	Variables   []string `json:"variables"`
	Content     string   `json:"content,omitempty"`
	Created     string   `json:"created,omitempty"`
	Modified    string   `json:"modified,omitempty"`
	Err         string   `json:"error,omitempty"`
}

// Store manages ZPL template files in a single directory.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create templates directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// canonicalFilename appends the required suffix when the caller passed
// a bare name. Lookups accept either form; Create requires the full
// filename.
func canonicalFilename(name string) string {
	if strings.HasSuffix(name, Suffix) {
		return name
	}
	return name + Suffix
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(canonicalFilename(name)))
}

// List returns every template in the directory, sorted by filename.
// Unreadable files are reported inline rather than failing the listing.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates directory: %w", err)
	}

	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Suffix) {
			continue
		}

		info, err := s.Get(entry.Name())
		if err != nil {
			infos = append(infos, Info{Filename: entry.Name(), Err: err.Error()})
			continue
		}
		info.Content = ""
		infos = append(infos, *info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Filename < infos[j].Filename })
	return infos, nil
}

// Get loads a single template with its metadata and derived fields.
func (s *Store) Get(name string) (*Info, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}

	body := string(data)
	meta := ParseMetadata(body)
	filename := filepath.Base(canonicalFilename(name))

	info := &Info{
		Filename:    filename,
		Name:        meta.Name,
		Description: meta.Description,
		Size:        meta.Size,
		SizeUnit:    meta.SizeUnit,
		SizeWidth:   meta.SizeWidth,
		SizeHeight:  meta.SizeHeight,
		Variables:   ExtractVariables(body),
		Content:     body,
		Created:     meta.Created,
		Modified:    meta.Modified,
	}

	if info.Name == "" {
		info.Name = strings.TrimSuffix(filename, Suffix)
	}

	// Derived millimeter view for display. A size that cannot be
	// parsed just leaves the field empty.
	if info.Size != "" {
		if size, err := label.SizeFromString(info.Size); err == nil {
			if w, h, err := size.ToMM(); err == nil {
				info.SizeMM = label.FormatSizeString(w, h, label.UnitMM, 1)
			}
		}
	}

	return info, nil
}

// Create writes a new template. The body is validated and wrapped with
// a metadata block before it reaches disk.
func (s *Store) Create(name, content string, meta Metadata) (*Info, error) {
	if !strings.HasSuffix(name, Suffix) {
		return nil, fmt.Errorf("%w: %s must end with %s", ErrInvalidName, name, Suffix)
	}

	path := s.path(name)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrTemplateExists, name)
	}

	if err := s.validateForWrite(content, &meta); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	meta.Created = now
	meta.Modified = now

	if err := os.WriteFile(path, []byte(BuildBody(content, meta)), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write template %s: %w", name, err)
	}

	return s.Get(name)
}

// Update rewrites an existing template, preserving its creation time
// and refreshing the modified timestamp.
func (s *Store) Update(name, content string, meta Metadata) (*Info, error) {
	existing, err := s.Get(name)
	if err != nil {
		return nil, err
	}

	if err := s.validateForWrite(content, &meta); err != nil {
		return nil, err
	}

	meta.Created = existing.Created
	meta.Modified = time.Now().UTC().Format(time.RFC3339)

	if err := os.WriteFile(s.path(name), []byte(BuildBody(content, meta)), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write template %s: %w", name, err)
	}

	return s.Get(name)
}

func (s *Store) Delete(name string) error {
	err := os.Remove(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return fmt.Errorf("failed to delete template %s: %w", name, err)
	}
	return nil
}

// Render substitutes variables into the template body. Every
// placeholder must be supplied; the first missing one fails the render
// by name. Rendering is deterministic for a given body and variables.
func (s *Store) Render(name string, variables map[string]string) (string, error) {
	info, err := s.Get(name)
	if err != nil {
		return "", err
	}
	return Render(info.Content, variables)
}

// Render is the pure substitution step, usable on an unsaved body.
func Render(content string, variables map[string]string) (string, error) {
	if err := validateSyntax(content); err != nil {
		return "", err
	}

	for _, name := range ExtractVariables(content) {
		if _, ok := variables[name]; !ok {
			return "", fmt.Errorf("%w: %s", ErrMissingVariable, name)
		}
	}

	rendered := placeholderPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		return variables[name]
	})

	return rendered, nil
}

// ExtractVariables returns the sorted unique placeholder names in a
// template body.
func ExtractVariables(content string) []string {
	seen := make(map[string]bool)
	var vars []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			vars = append(vars, m[1])
		}
	}
	sort.Strings(vars)
	if vars == nil {
		vars = []string{}
	}
	return vars
}

// Validate checks a template body without writing it: size cap, ZPL
// frame balance, then placeholder syntax. The first failure wins.
func Validate(content string) error {
	if err := ValidateContent(content); err != nil {
		return err
	}
	return validateSyntax(content)
}

// ValidateContent enforces the ZPL frame rules: the body must start
// with ^XA, end with ^XZ, and carry equal counts of each.
func ValidateContent(content string) error {
	if len(content) > maxContentChars {
		return fmt.Errorf("%w: content exceeds %d characters", ErrInvalidContent, maxContentChars)
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return fmt.Errorf("%w: content is empty", ErrInvalidContent)
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "^XA") {
		return fmt.Errorf("%w: content must start with ^XA", ErrInvalidContent)
	}
	if !strings.HasSuffix(upper, "^XZ") {
		return fmt.Errorf("%w: content must end with ^XZ", ErrInvalidContent)
	}

	starts := strings.Count(upper, "^XA")
	ends := strings.Count(upper, "^XZ")
	if starts != ends {
		return fmt.Errorf("%w: %d ^XA against %d ^XZ", ErrInvalidContent, starts, ends)
	}

	return nil
}

// validateSyntax checks that every {{ has a matching }} and that
// placeholders do not nest.
func validateSyntax(content string) error {
	depth := 0
	for i := 0; i+1 < len(content); i++ {
		switch content[i : i+2] {
		case "{{":
			depth++
			if depth > 1 {
				return fmt.Errorf("%w: nested placeholder at offset %d", ErrUnbalancedTemplate, i)
			}
			i++
		case "}}":
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unmatched }} at offset %d", ErrUnbalancedTemplate, i)
			}
			i++
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: unclosed placeholder", ErrUnbalancedTemplate)
	}
	return nil
}

// validateForWrite runs the content checks shared by Create and
// Update, and validates any declared size. Unit-aware validation is
// tried first with the legacy inches-only form as a fallback.
func (s *Store) validateForWrite(content string, meta *Metadata) error {
	if err := Validate(content); err != nil {
		return err
	}

	if meta.Size != "" {
		if _, err := label.ValidateSizeString(meta.Size); err != nil {
			if legacyErr := label.ValidateLegacySizeString(meta.Size); legacyErr != nil {
				return err
			}
		}
		if meta.SizeUnit == "" {
			meta.SizeUnit = string(label.UnitInches)
		}
	}

	if len(meta.Variables) == 0 {
		meta.Variables = ExtractVariables(content)
	}

	return nil
}

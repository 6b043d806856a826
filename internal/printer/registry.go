package printer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"barcode-central/internal/label"
	"barcode-central/internal/storage"
)

var (
	ErrPrinterNotFound  = errors.New("printer not found")
	ErrPrinterExists    = errors.New("printer already exists")
	ErrPrinterDisabled  = errors.New("printer is disabled")
	ErrInvalidPrinter   = errors.New("invalid printer definition")
	ErrIncompatibleSize = errors.New("label size not supported by printer")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Printer is a registered network label printer. SupportedSizes holds
// the legacy normalized inch strings; SupportedSizesV2 holds the same
// sizes structurally. The two lists are kept in sync on every write.
type Printer struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	IP               string       `json:"ip"`
	Port             int          `json:"port"`
	SupportedSizes   []string     `json:"supported_sizes"`
	SupportedSizesV2 []label.Size `json:"supported_sizes_v2"`
	DPI              int          `json:"dpi"`
	Enabled          bool         `json:"enabled"`
	DefaultUnit      label.Unit   `json:"default_unit"`
}

func (p *Printer) Address() string {
	return fmt.Sprintf("%s:%d", p.IP, p.Port)
}

// SizeSpec accepts either a legacy size string or a structured
// {width, height, unit} object in JSON, so both API generations keep
// working.
type SizeSpec struct {
	str  string
	size *label.Size
}

func SizeSpecFromString(s string) SizeSpec   { return SizeSpec{str: s} }
func SizeSpecFromSize(s label.Size) SizeSpec { return SizeSpec{size: &s} }

func (s *SizeSpec) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &s.str)
	}
	var size label.Size
	if err := json.Unmarshal(data, &size); err != nil {
		return err
	}
	s.size = &size
	return nil
}

func (s SizeSpec) MarshalJSON() ([]byte, error) {
	if s.size != nil {
		return json.Marshal(*s.size)
	}
	return json.Marshal(s.str)
}

// resolve turns the spec into a Size checked against the printable
// range. Strings go through the unit-aware validator first, falling
// back to the legacy inches-only form for old records; defaultUnit
// only matters for structured entries with an empty unit, since bare
// strings already default to inches in the parser.
func (s SizeSpec) resolve(defaultUnit label.Unit) (label.Size, error) {
	if s.size != nil {
		unit := s.size.Unit
		if unit == "" {
			unit = defaultUnit
		}
		size, err := label.NewSize(s.size.Width, s.size.Height, unit)
		if err != nil {
			return label.Size{}, err
		}
		if err := label.ValidateSize(size); err != nil {
			return label.Size{}, err
		}
		return size, nil
	}

	size, err := label.ValidateSizeString(s.str)
	if err != nil {
		if legacyErr := label.ValidateLegacySizeString(s.str); legacyErr != nil {
			return label.Size{}, err
		}
		return label.SizeFromString(s.str)
	}
	return size, nil
}

// Update is a partial printer mutation. Nil fields are untouched. The
// printer id is never mutable.
type Update struct {
	Name           *string    `json:"name"`
	IP             *string    `json:"ip"`
	Port           *int       `json:"port"`
	SupportedSizes []SizeSpec `json:"supported_sizes"`
	DPI            *int       `json:"dpi"`
	Enabled        *bool      `json:"enabled"`
	DefaultUnit    *string    `json:"default_unit"`
}

type registryFile struct {
	Printers []Printer `json:"printers"`
}

// Registry persists printers in a single JSON document with an
// in-memory cache. The cache is dropped after every successful write
// and left untouched when a write fails, so readers never observe a
// state that is not on disk.
type Registry struct {
	path  string
	mu    sync.RWMutex
	cache *registryFile
}

func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// Invalidate drops the cache; the next read reloads from disk.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	r.cache = nil
	r.mu.Unlock()
}

func (r *Registry) load() (*registryFile, error) {
	r.mu.RLock()
	if r.cache != nil {
		defer r.mu.RUnlock()
		return r.cache, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache != nil {
		return r.cache, nil
	}

	var doc registryFile
	if err := storage.ReadJSON(r.path, &doc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			doc = registryFile{Printers: []Printer{}}
		} else {
			return nil, err
		}
	}
	if doc.Printers == nil {
		doc.Printers = []Printer{}
	}

	r.cache = &doc
	return r.cache, nil
}

// save writes the document and only then installs it as the new cache.
func (r *Registry) save(doc *registryFile) error {
	if err := storage.WriteJSON(r.path, doc); err != nil {
		return err
	}
	r.mu.Lock()
	r.cache = doc
	r.mu.Unlock()
	return nil
}

func (r *Registry) List() ([]Printer, error) {
	doc, err := r.load()
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	printers := make([]Printer, len(doc.Printers))
	copy(printers, doc.Printers)
	return printers, nil
}

func (r *Registry) Get(id string) (*Printer, error) {
	doc, err := r.load()
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range doc.Printers {
		if doc.Printers[i].ID == id {
			p := doc.Printers[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPrinterNotFound, id)
}

// AddRequest carries a new printer definition. Enabled defaults to
// true when omitted.
type AddRequest struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	IP             string     `json:"ip"`
	Port           int        `json:"port"`
	SupportedSizes []SizeSpec `json:"supported_sizes"`
	DPI            int        `json:"dpi"`
	Enabled        *bool      `json:"enabled"`
	DefaultUnit    string     `json:"default_unit"`
}

func (r *Registry) Add(req AddRequest) (*Printer, error) {
	defaultUnit := label.ParseUnit(req.DefaultUnit)

	p := Printer{
		ID:          req.ID,
		Name:        req.Name,
		IP:          req.IP,
		Port:        req.Port,
		DPI:         req.DPI,
		Enabled:     true,
		DefaultUnit: defaultUnit,
	}
	if req.Enabled != nil {
		p.Enabled = *req.Enabled
	}

	legacy, v2, err := normalizeSizes(req.SupportedSizes, defaultUnit)
	if err != nil {
		return nil, err
	}
	p.SupportedSizes = legacy
	p.SupportedSizesV2 = v2

	if err := validatePrinter(&p); err != nil {
		return nil, err
	}

	doc, err := r.load()
	if err != nil {
		return nil, err
	}

	next := registryFile{Printers: make([]Printer, 0, len(doc.Printers)+1)}
	r.mu.RLock()
	for _, existing := range doc.Printers {
		if existing.ID == p.ID {
			r.mu.RUnlock()
			return nil, fmt.Errorf("%w: %s", ErrPrinterExists, p.ID)
		}
		next.Printers = append(next.Printers, existing)
	}
	r.mu.RUnlock()
	next.Printers = append(next.Printers, p)

	if err := r.save(&next); err != nil {
		return nil, err
	}
	log.Printf("[printers] added printer %s (%s)", p.ID, p.Address())
	return &p, nil
}

func (r *Registry) Update(id string, upd Update) (*Printer, error) {
	// Force a reload so a concurrent external edit of the file is not
	// silently overwritten from a stale cache.
	r.Invalidate()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	next := registryFile{Printers: make([]Printer, len(doc.Printers))}
	copy(next.Printers, doc.Printers)
	r.mu.RUnlock()

	idx := -1
	for i := range next.Printers {
		if next.Printers[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrPrinterNotFound, id)
	}

	p := next.Printers[idx]
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.IP != nil {
		p.IP = *upd.IP
	}
	if upd.Port != nil {
		p.Port = *upd.Port
	}
	if upd.DPI != nil {
		p.DPI = *upd.DPI
	}
	if upd.Enabled != nil {
		p.Enabled = *upd.Enabled
	}
	if upd.DefaultUnit != nil {
		p.DefaultUnit = label.ParseUnit(*upd.DefaultUnit)
	}
	if upd.SupportedSizes != nil {
		legacy, v2, err := normalizeSizes(upd.SupportedSizes, p.DefaultUnit)
		if err != nil {
			return nil, err
		}
		p.SupportedSizes = legacy
		p.SupportedSizesV2 = v2
	}

	if err := validatePrinter(&p); err != nil {
		return nil, err
	}

	next.Printers[idx] = p
	if err := r.save(&next); err != nil {
		return nil, err
	}
	log.Printf("[printers] updated printer %s", id)
	return &p, nil
}

func (r *Registry) Delete(id string) error {
	doc, err := r.load()
	if err != nil {
		return err
	}

	r.mu.RLock()
	next := registryFile{Printers: make([]Printer, 0, len(doc.Printers))}
	found := false
	for _, p := range doc.Printers {
		if p.ID == id {
			found = true
			continue
		}
		next.Printers = append(next.Printers, p)
	}
	r.mu.RUnlock()

	if !found {
		return fmt.Errorf("%w: %s", ErrPrinterNotFound, id)
	}

	if err := r.save(&next); err != nil {
		return err
	}
	log.Printf("[printers] deleted printer %s", id)
	return nil
}

// ValidateCompatibility checks that the printer can take labels of the
// requested size. Structured sizes are matched within the default inch
// tolerance; printers that predate structured sizes fall back to an
// exact match against the normalized legacy string.
func (r *Registry) ValidateCompatibility(id, sizeStr string) error {
	p, err := r.Get(id)
	if err != nil {
		return err
	}
	if !p.Enabled {
		return fmt.Errorf("%w: %s", ErrPrinterDisabled, id)
	}

	requested, err := label.SizeFromString(sizeStr)
	if err != nil {
		return err
	}

	for _, supported := range p.SupportedSizesV2 {
		if supported.CompatibleWith(requested, label.DefaultCompatTolerance) {
			return nil
		}
	}

	// Legacy lists match on either the raw requested string or its
	// normalized inch form.
	legacy, legacyErr := requested.LegacyString()
	for _, supported := range p.SupportedSizes {
		if supported == sizeStr {
			return nil
		}
		if legacyErr == nil && supported == legacy {
			return nil
		}
	}

	return fmt.Errorf("%w: %s does not support %s (supported: %s)",
		ErrIncompatibleSize, id, sizeStr, strings.Join(p.SupportedSizes, ", "))
}

// normalizeSizes resolves the mixed string/structured input list into
// the synchronized legacy and structured forms.
func normalizeSizes(specs []SizeSpec, defaultUnit label.Unit) ([]string, []label.Size, error) {
	legacy := make([]string, 0, len(specs))
	v2 := make([]label.Size, 0, len(specs))

	for _, spec := range specs {
		size, err := spec.resolve(defaultUnit)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPrinter, err)
		}
		ls, err := size.LegacyString()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPrinter, err)
		}
		legacy = append(legacy, ls)
		v2 = append(v2, size)
	}

	return legacy, v2, nil
}

func validatePrinter(p *Printer) error {
	if p.ID == "" || !idPattern.MatchString(p.ID) {
		return fmt.Errorf("%w: id %q must be alphanumeric with hyphens or underscores", ErrInvalidPrinter, p.ID)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPrinter)
	}
	if err := validateIP(p.IP); err != nil {
		return err
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrInvalidPrinter, p.Port)
	}
	if p.DPI <= 0 {
		return fmt.Errorf("%w: dpi must be positive, got %d", ErrInvalidPrinter, p.DPI)
	}
	if len(p.SupportedSizes) == 0 {
		return fmt.Errorf("%w: at least one supported size is required", ErrInvalidPrinter)
	}
	if p.DefaultUnit == "" {
		p.DefaultUnit = label.UnitInches
	}
	return nil
}

func validateIP(ip string) error {
	octets := strings.Split(ip, ".")
	if len(octets) != 4 {
		return fmt.Errorf("%w: ip %q must be a dotted quad", ErrInvalidPrinter, ip)
	}
	for _, octet := range octets {
		n, err := strconv.Atoi(octet)
		if err != nil || octet == "" || n < 0 || n > 255 {
			return fmt.Errorf("%w: ip %q has invalid octet %q", ErrInvalidPrinter, ip, octet)
		}
	}
	return nil
}

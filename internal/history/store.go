package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"barcode-central/internal/storage"
)

var ErrEntryNotFound = errors.New("history entry not found")

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	// DefaultMaxEntries bounds the history document; the oldest
	// entries are dropped once the bound is exceeded.
	DefaultMaxEntries = 1000

	// maxPageSize caps a single GetEntries page.
	maxPageSize = 500
)

// Entry is one recorded print job.
type Entry struct {
	ID           string            `json:"id"`
	Timestamp    string            `json:"timestamp"`
	Template     string            `json:"template"`
	TemplateName string            `json:"template_name,omitempty"`
	LabelSize    string            `json:"label_size,omitempty"`
	PrinterID    string            `json:"printer_id"`
	PrinterName  string            `json:"printer_name,omitempty"`
	Variables    map[string]string `json:"variables,omitempty"`
	Quantity     int               `json:"quantity"`
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	RenderedZPL  string            `json:"rendered_zpl,omitempty"`
	PreviewFile  string            `json:"preview_filename,omitempty"`
	User         string            `json:"user,omitempty"`
	ReprintOf    string            `json:"reprint_of,omitempty"`
}

// Filter narrows GetEntries results. All present fields must match.
type Filter struct {
	Template  string
	PrinterID string
	Status    string
	StartDate string
	EndDate   string
}

// Statistics summarizes the recorded history.
type Statistics struct {
	TotalJobs       int            `json:"total_jobs"`
	SuccessfulJobs  int            `json:"successful_jobs"`
	FailedJobs      int            `json:"failed_jobs"`
	SuccessRate     float64        `json:"success_rate"`
	TotalLabels     int            `json:"total_labels"`
	AverageQuantity float64        `json:"average_quantity"`
	ByTemplate      map[string]int `json:"by_template"`
	ByPrinter       map[string]int `json:"by_printer"`
	ByUser          map[string]int `json:"by_user"`
}

type historyFile struct {
	Entries     []Entry `json:"entries"`
	LastUpdated string  `json:"last_updated"`
}

// Store keeps print history in a single JSON document. The mutex
// serializes read-modify-write cycles; the document itself is always
// replaced atomically on disk.
type Store struct {
	path       string
	maxEntries int
	mu         sync.Mutex
}

func NewStore(path string, maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{path: path, maxEntries: maxEntries}
}

func (s *Store) load() (*historyFile, error) {
	var doc historyFile
	if err := storage.ReadJSON(s.path, &doc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &historyFile{Entries: []Entry{}}, nil
		}
		return nil, err
	}
	if doc.Entries == nil {
		doc.Entries = []Entry{}
	}
	return &doc, nil
}

func (s *Store) save(doc *historyFile) error {
	doc.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return storage.WriteJSON(s.path, doc)
}

// Add appends an entry, assigning an id and UTC timestamp when absent,
// and rotates out the oldest entries past the configured bound.
func (s *Store) Add(e Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", err
	}

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	doc.Entries = append(doc.Entries, e)
	if len(doc.Entries) > s.maxEntries {
		doc.Entries = doc.Entries[len(doc.Entries)-s.maxEntries:]
	}

	if err := s.save(doc); err != nil {
		return "", err
	}
	return e.ID, nil
}

// GetEntries returns a page of entries, newest first, plus the total
// count after filtering. The limit is clamped to the page size cap.
func (s *Store) GetEntries(limit, offset int, f Filter) ([]Entry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, 0, err
	}

	filtered := make([]Entry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		if f.matches(e) {
			filtered = append(filtered, e)
		}
	}

	// RFC3339 UTC timestamps sort lexicographically.
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp > filtered[j].Timestamp
	})

	total := len(filtered)

	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Entry{}, total, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

func (f Filter) matches(e Entry) bool {
	if f.Template != "" && e.Template != f.Template {
		return false
	}
	if f.PrinterID != "" && e.PrinterID != f.PrinterID {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.StartDate != "" && e.Timestamp < f.StartDate {
		return false
	}
	if f.EndDate != "" && e.Timestamp > f.EndDate {
		return false
	}
	return true
}

func (s *Store) Get(id string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Entries {
		if doc.Entries[i].ID == id {
			e := doc.Entries[i]
			return &e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	kept := doc.Entries[:0]
	found := false
	for _, e := range doc.Entries {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	doc.Entries = kept
	return s.save(doc)
}

// Search finds entries whose field (or any common field when field is
// empty) contains query, case-insensitively.
func (s *Store) Search(query, field string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	matches := make([]Entry, 0)
	for _, e := range doc.Entries {
		if entryMatches(e, query, field) {
			matches = append(matches, e)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Timestamp > matches[j].Timestamp
	})
	return matches, nil
}

func entryMatches(e Entry, query, field string) bool {
	contains := func(s string) bool {
		return strings.Contains(strings.ToLower(s), query)
	}

	switch field {
	case "template":
		return contains(e.Template) || contains(e.TemplateName)
	case "printer_id":
		return contains(e.PrinterID)
	case "printer_name":
		return contains(e.PrinterName)
	case "user":
		return contains(e.User)
	case "status":
		return contains(e.Status)
	case "error_message":
		return contains(e.ErrorMessage)
	case "":
		return contains(e.Template) || contains(e.TemplateName) ||
			contains(e.PrinterID) || contains(e.PrinterName) ||
			contains(e.User) || contains(e.Status) || contains(e.ErrorMessage)
	default:
		return false
	}
}

func (s *Store) Statistics() (*Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		ByTemplate: make(map[string]int),
		ByPrinter:  make(map[string]int),
		ByUser:     make(map[string]int),
	}

	for _, e := range doc.Entries {
		stats.TotalJobs++
		if e.Status == StatusSuccess {
			stats.SuccessfulJobs++
		} else {
			stats.FailedJobs++
		}
		stats.TotalLabels += e.Quantity
		if e.Template != "" {
			stats.ByTemplate[e.Template]++
		}
		if e.PrinterID != "" {
			stats.ByPrinter[e.PrinterID]++
		}
		if e.User != "" {
			stats.ByUser[e.User]++
		}
	}

	if stats.TotalJobs > 0 {
		stats.SuccessRate = float64(stats.SuccessfulJobs) / float64(stats.TotalJobs) * 100
		stats.AverageQuantity = float64(stats.TotalLabels) / float64(stats.TotalJobs)
	}
	return stats, nil
}

// Cleanup removes entries older than the given number of days and
// reports how many were dropped.
func (s *Store) Cleanup(days int) (int, error) {
	if days <= 0 {
		return 0, fmt.Errorf("days must be positive, got %d", days)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
	kept := doc.Entries[:0]
	removed := 0
	for _, e := range doc.Entries {
		if e.Timestamp < cutoff {
			removed++
			continue
		}
		kept = append(kept, e)
	}

	if removed == 0 {
		return 0, nil
	}

	doc.Entries = kept
	if err := s.save(doc); err != nil {
		return 0, err
	}
	return removed, nil
}

// allEntriesSorted returns the full history, newest first. Export is
// not subject to the page size cap.
func (s *Store) allEntriesSorted() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(doc.Entries))
	copy(entries, doc.Entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
	return entries, nil
}

// ExportJSON returns every entry, newest first.
func (s *Store) ExportJSON() ([]Entry, error) {
	return s.allEntriesSorted()
}

// ExportCSV renders the history with a fixed column set. The header
// row is emitted even for an empty history.
func (s *Store) ExportCSV() (string, error) {
	entries, err := s.allEntriesSorted()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write([]string{"id", "timestamp", "user", "template", "printer_id", "quantity", "status"}); err != nil {
		return "", err
	}
	for _, e := range entries {
		record := []string{e.ID, e.Timestamp, e.User, e.Template, e.PrinterID, strconv.Itoa(e.Quantity), e.Status}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Package history persists inspection reports as JSON files with a
// lightweight index for listing and search.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"iqccli/pkg/contracts/domain"
)

// ErrNotFound is returned when no report exists for the requested ID.
var ErrNotFound = errors.New("report not found")

const indexFile = "index.json"

// Store is a file-backed report archive. One JSON file per report plus an
// index of summaries for cheap listing. Safe for concurrent use.
type Store struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	index []domain.ReportSummary
}

// NewStore opens (or creates) the archive at dir and loads the index.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	s := &Store{
		dir:    dir,
		logger: logger.With(slog.String("component", "history_store")),
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if os.IsNotExist(err) {
		s.index = []domain.ReportSummary{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read history index: %w", err)
	}
	if err := json.Unmarshal(data, &s.index); err != nil {
		return fmt.Errorf("parse history index: %w", err)
	}
	return nil
}

// writeIndex persists the in-memory index. Caller must hold mu.
func (s *Store) writeIndex() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history index: %w", err)
	}

	path := filepath.Join(s.dir, indexFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write history index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace history index: %w", err)
	}
	return nil
}

func (s *Store) reportPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the report and updates the index. An existing report with
// the same ID is replaced.
func (s *Store) Save(ctx context.Context, report *domain.Report) error {
	if report.ID == "" {
		return fmt.Errorf("report has no ID")
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Write-then-rename keeps the report readable by a concurrent Get.
	path := s.reportPath(report.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write report %s: %w", report.ID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace report %s: %w", report.ID, err)
	}

	summary := report.Summarize()
	replaced := false
	for i, existing := range s.index {
		if existing.ID == report.ID {
			s.index[i] = summary
			replaced = true
			break
		}
	}
	if !replaced {
		s.index = append(s.index, summary)
	}
	sort.Slice(s.index, func(i, j int) bool {
		return s.index[i].GeneratedAt.After(s.index[j].GeneratedAt)
	})

	if err := s.writeIndex(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "report saved",
		slog.String("report_id", report.ID),
		slog.Int("dimensions", len(report.Dimensions)))
	return nil
}

// Get loads a full report by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Report, error) {
	data, err := os.ReadFile(s.reportPath(id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", id, err)
	}

	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", id, err)
	}
	return &report, nil
}

// List returns all report summaries, newest first.
func (s *Store) List(ctx context.Context) ([]domain.ReportSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ReportSummary, len(s.index))
	copy(out, s.index)
	return out, nil
}

// Search returns summaries whose part name or batch number contains the
// query, case-insensitive. An empty query matches everything.
func (s *Store) Search(ctx context.Context, query string) ([]domain.ReportSummary, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return s.List(ctx)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ReportSummary
	for _, summary := range s.index {
		if strings.Contains(strings.ToLower(summary.PartName), query) ||
			strings.Contains(strings.ToLower(summary.BatchNumber), query) {
			out = append(out, summary)
		}
	}
	return out, nil
}

// Delete removes a report and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := -1
	for i, existing := range s.index {
		if existing.ID == id {
			found = i
			break
		}
	}
	if found < 0 {
		return fmt.Errorf("report %s: %w", id, ErrNotFound)
	}

	if err := os.Remove(s.reportPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove report %s: %w", id, err)
	}

	s.index = append(s.index[:found], s.index[found+1:]...)
	if err := s.writeIndex(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "report deleted", slog.String("report_id", id))
	return nil
}

// Count returns the number of archived reports.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-exito/models"
)

// MultiRepository fans every batch out to several repositories.
type MultiRepository struct {
	repos []Repository
	mu    sync.Mutex
}

// NewMultiRepository combines repos; they are written in the given order.
func NewMultiRepository(repos ...Repository) *MultiRepository {
	return &MultiRepository{repos: repos}
}

// NewDualRepository writes CSV rows and JSON lines side by side, deriving
// both file names from base (its extension is replaced). opts apply to the
// JSON side.
func NewDualRepository(base string, opts ...JSONLOption) (*MultiRepository, error) {
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	csvRepo, err := NewCSVRepository(stem + ".csv")
	if err != nil {
		return nil, fmt.Errorf("create csv repository: %w", err)
	}
	jsonRepo, err := NewJSONLRepository(stem+".jsonl", opts...)
	if err != nil {
		csvRepo.Close()
		return nil, fmt.Errorf("create json repository: %w", err)
	}
	return NewMultiRepository(csvRepo, jsonRepo), nil
}

// Persist writes the batch to every repository, stopping at the first
// failure.
func (mr *MultiRepository) Persist(products []*models.Product) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	for i, repo := range mr.repos {
		if err := repo.Persist(products); err != nil {
			return fmt.Errorf("repository %d: %w", i, err)
		}
	}
	return nil
}

// Close closes every repository and joins their errors.
func (mr *MultiRepository) Close() error {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	var errs []error
	for i, repo := range mr.repos {
		if err := repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close repository %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

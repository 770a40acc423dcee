package pipeline

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-exito/models"
)

// CSVSchemaVersion is written in every CSV row; bump it whenever csvHeader
// changes.
const CSVSchemaVersion = "2"

var csvHeader = []string{
	"global_index", "page_index", "title", "brand", "price_text", "price_value",
	"currency", "size", "rating", "review_count", "description", "source",
	"category", "image_url", "url", "page", "extracted_at", "status", "tier",
	"schema_version",
}

// ErrHeaderMismatch is returned when an existing CSV file was written with
// a different header.
type ErrHeaderMismatch struct {
	Path string
	Got  []string
}

func (e ErrHeaderMismatch) Error() string {
	return fmt.Sprintf("csv file %s has header %q, want schema version %s", e.Path, strings.Join(e.Got, ","), CSVSchemaVersion)
}

// CSVRepository appends records as CSV rows.
type CSVRepository struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVRepository opens filename for appending. The header is written only
// when the file is new or empty.
func NewCSVRepository(filename string) (*CSVRepository, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}

	existing, err := csv.NewReader(f).Read()
	switch {
	case errors.Is(err, io.EOF):
		existing = nil
	case err != nil:
		f.Close()
		return nil, fmt.Errorf("read csv header: %w", err)
	case !slices.Equal(existing, csvHeader):
		f.Close()
		return nil, ErrHeaderMismatch{Path: filename, Got: existing}
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, fmt.Errorf("seek csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if existing == nil {
		if err := writer.Write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush csv header: %w", err)
		}
	}

	return &CSVRepository{
		file:   f,
		writer: writer,
	}, nil
}

// Persist appends one row per product.
func (cr *CSVRepository) Persist(products []*models.Product) error {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	for _, p := range products {
		if err := cr.writer.Write(csvRecord(p)); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cr.writer.Flush()
	if err := cr.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

func csvRecord(p *models.Product) []string {
	price := ""
	if p.PriceValue != nil {
		price = strconv.FormatInt(*p.PriceValue, 10)
	}
	return []string{
		strconv.FormatInt(p.GlobalIndex, 10),
		strconv.Itoa(p.PageIndex),
		p.Title,
		p.Brand,
		p.PriceText,
		price,
		p.Currency,
		p.Size,
		p.Rating,
		strconv.Itoa(p.ReviewCount),
		p.Description,
		p.Source,
		p.Category,
		p.ImageURL,
		p.URL,
		strconv.Itoa(p.Page),
		p.ExtractedAt,
		string(p.Status),
		string(p.Tier),
		CSVSchemaVersion,
	}
}

// Close flushes and closes the file handle.
func (cr *CSVRepository) Close() error {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	cr.writer.Flush()
	if err := cr.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cr.file.Close()
}

// JSONLRepository appends newline-delimited JSON records.
type JSONLRepository struct {
	file     *os.File
	path     string
	snapshot string
	writer   *bufio.Writer
	encoder  *json.Encoder
	mu       sync.Mutex
}

// JSONLOption configures a JSONLRepository.
type JSONLOption func(*JSONLRepository)

// WithFormattedSnapshot rewrites <stem>_formatted.json, an indented JSON
// array of every line in the file, after each persisted batch.
func WithFormattedSnapshot() JSONLOption {
	return func(jr *JSONLRepository) {
		jr.snapshot = FormattedSnapshotPath(jr.path)
	}
}

// FormattedSnapshotPath returns the snapshot file name paired with a JSONL file.
func FormattedSnapshotPath(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + "_formatted.json"
}

// NewJSONLRepository opens filename for appending.
func NewJSONLRepository(filename string, opts ...JSONLOption) (*JSONLRepository, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	jr := &JSONLRepository{
		file:    f,
		path:    filename,
		writer:  buffer,
		encoder: encoder,
	}
	for _, opt := range opts {
		opt(jr)
	}
	return jr, nil
}

// Persist appends one JSON line per product.
func (jr *JSONLRepository) Persist(products []*models.Product) error {
	jr.mu.Lock()
	defer jr.mu.Unlock()

	for _, p := range products {
		if err := jr.encoder.Encode(p); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}

	if err := jr.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	if jr.snapshot != "" && len(products) > 0 {
		if err := writeSnapshot(jr.path, jr.snapshot); err != nil {
			return fmt.Errorf("write formatted snapshot: %w", err)
		}
	}
	return nil
}

// writeSnapshot re-reads every JSON line of src and replaces dst with them
// as one indented array. Unreadable lines are skipped.
func writeSnapshot(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	records := make([]json.RawMessage, 0)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		records = append(records, json.RawMessage(slices.Clone(line)))
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(tmp)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// Close flushes buffers and closes the underlying file.
func (jr *JSONLRepository) Close() error {
	jr.mu.Lock()
	defer jr.mu.Unlock()

	if err := jr.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jr.file.Close()
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}

package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Document is an open PDF staged in a private temp directory. Page
// replacements accumulate until Assemble splices them into the output.
type Document struct {
	mu sync.Mutex

	dir  string
	path string

	file   *os.File
	reader *pdflib.Reader

	pageCount int
	pages     map[int]*Page
	replaced  map[int]string

	logger *slog.Logger
}

// OpenDocument validates the input bytes and stages them on disk.
// ledongthuc/pdf requires a ReadSeeker with a known size, so the document
// lives in a temp file for its whole lifetime.
func OpenDocument(ctx context.Context, data []byte, logger *slog.Logger) (*Document, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir, err := os.MkdirTemp("", "blackout-doc-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	path := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to stage document: %w", err)
	}

	if err := api.ValidateFile(path, nil); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("invalid PDF: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to open staged document: %w", err)
	}
	pageCount, err := api.PageCount(f, nil)
	if err != nil {
		f.Close()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	f.Close()
	if pageCount < 1 {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("document has no pages")
	}

	doc := &Document{
		dir:       dir,
		path:      path,
		pageCount: pageCount,
		pages:     make(map[int]*Page),
		replaced:  make(map[int]string),
		logger:    logger.With("component", "pdf"),
	}

	// The text layer reader is best effort. A document it cannot parse
	// still flows through the OCR path.
	file, reader, err := pdflib.Open(path)
	if err != nil {
		doc.logger.Warn("text layer unavailable, pages will use OCR", "error", err)
	} else {
		doc.file = file
		doc.reader = reader
	}

	return doc, nil
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int { return d.pageCount }

// Path returns the staged input file, for rendering.
func (d *Document) Path() string { return d.path }

// Dir returns the document's private temp directory. Page replacement
// files written there are cleaned up with the document.
func (d *Document) Dir() string { return d.dir }

// Page loads the 1-based page, caching the parsed text layer.
func (d *Document) Page(n int) (*Page, error) {
	if n < 1 || n > d.pageCount {
		return nil, fmt.Errorf("page %d out of range 1-%d", n, d.pageCount)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pages[n]; ok {
		return p, nil
	}
	p := d.loadPage(n)
	d.pages[n] = p
	return p, nil
}

// ReplacePage records a single-page PDF that supersedes page n in the
// assembled output.
func (d *Document) ReplacePage(n int, singlePagePDF string) error {
	if n < 1 || n > d.pageCount {
		return fmt.Errorf("page %d out of range 1-%d", n, d.pageCount)
	}
	d.mu.Lock()
	d.replaced[n] = singlePagePDF
	d.mu.Unlock()
	return nil
}

// Assemble splices replaced pages into the original page order and returns
// the merged document bytes. Pages without a replacement are carried over
// from the input unchanged.
func (d *Document) Assemble(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	replaced := make(map[int]string, len(d.replaced))
	for k, v := range d.replaced {
		replaced[k] = v
	}
	d.mu.Unlock()

	parts := make([]string, 0, d.pageCount)
	for n := 1; n <= d.pageCount; n++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if path, ok := replaced[n]; ok {
			parts = append(parts, path)
			continue
		}
		part := filepath.Join(d.dir, fmt.Sprintf("orig-%04d.pdf", n))
		if err := api.TrimFile(d.path, part, []string{strconv.Itoa(n)}, nil); err != nil {
			return nil, fmt.Errorf("failed to extract page %d: %w", n, err)
		}
		parts = append(parts, part)
	}

	out := filepath.Join(d.dir, "output.pdf")
	if err := api.MergeCreateFile(parts, out, false, nil); err != nil {
		return nil, fmt.Errorf("failed to merge pages: %w", err)
	}
	if err := api.ValidateFile(out, nil); err != nil {
		return nil, fmt.Errorf("assembled document failed validation: %w", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read assembled document: %w", err)
	}
	return data, nil
}

// Close releases the reader and removes the temp directory.
func (d *Document) Close() error {
	if d.file != nil {
		d.file.Close()
	}
	return os.RemoveAll(d.dir)
}

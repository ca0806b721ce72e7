package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/mhoffmann/blackout/internal/alert"
	"github.com/mhoffmann/blackout/internal/findings"
	"github.com/mhoffmann/blackout/internal/pdf"
)

// ProgressFunc receives the number of completed pages after each page
// finishes. completed counts finished pages, not page positions.
type ProgressFunc func(completed, total int)

// Result is the outcome of anonymizing one document.
type Result struct {
	Output      []byte
	TotalPages  int
	Redactions  int
	FailedPages []int
	OCRPages    int
}

// Orchestrator fans pages out to workers and assembles the redacted
// document.
type Orchestrator struct {
	processor *PageProcessor
	notifier  alert.Notifier
	workers   int
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator. workers <= 0 sizes the pool to
// the CPU count; the pool never exceeds the page count.
func NewOrchestrator(processor *PageProcessor, notifier alert.Notifier, workers int, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		processor: processor,
		notifier:  notifier,
		workers:   workers,
		logger:    logger.With("component", "orchestrator"),
	}
}

// Run anonymizes the input document. A page that fails stays in the output
// unredacted and is listed in FailedPages; only failures affecting the
// whole document return an error.
func (o *Orchestrator) Run(ctx context.Context, input []byte, prefs findings.Preferences, progress ProgressFunc) (*Result, error) {
	doc, err := pdf.OpenDocument(ctx, input, o.logger)
	if err != nil {
		o.alertFatal(ctx, fmt.Sprintf("document rejected: %v", err))
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	total := doc.PageCount()
	width := o.workers
	if width <= 0 {
		width = runtime.GOMAXPROCS(0)
	}
	if width > total {
		width = total
	}

	o.logger.Info("processing document", "pages", total, "workers", width)

	pageCh := make(chan int)
	results := make(chan PageResult, total)
	var completed atomic.Int64

	var wg sync.WaitGroup
	for w := 0; w < width; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pageNum := range pageCh {
				res := o.processor.Process(ctx, doc, pageNum, prefs)
				results <- res
				if progress != nil {
					progress(int(completed.Add(1)), total)
				}
			}
		}()
	}

	for n := 1; n <= total; n++ {
		pageCh <- n
	}
	close(pageCh)
	wg.Wait()
	close(results)

	out := &Result{TotalPages: total}
	for res := range results {
		if res.Err != nil {
			o.logger.Error("page failed", "page", res.Page, "error", res.Err)
			out.FailedPages = append(out.FailedPages, res.Page)
			continue
		}
		out.Redactions += res.Redactions
		if res.UsedOCR {
			out.OCRPages++
		}
	}
	sort.Ints(out.FailedPages)

	output, err := doc.Assemble(ctx)
	if err != nil {
		o.alertFatal(ctx, fmt.Sprintf("failed to assemble output: %v", err))
		return nil, fmt.Errorf("failed to assemble document: %w", err)
	}
	out.Output = output

	o.logger.Info("document complete", "pages", total,
		"redactions", out.Redactions, "failed_pages", len(out.FailedPages),
		"ocr_pages", out.OCRPages)
	return out, nil
}

func (o *Orchestrator) alertFatal(ctx context.Context, body string) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Notify(ctx, "document processing failed", body); err != nil {
		o.logger.Warn("operator alert failed", "error", err)
	}
}

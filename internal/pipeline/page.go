// Package pipeline runs the anonymization flow: page text acquisition,
// detection, validation, localization, and redaction, fanned out across
// worker goroutines with per-page isolation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mhoffmann/blackout/internal/findings"
	"github.com/mhoffmann/blackout/internal/locate"
	"github.com/mhoffmann/blackout/internal/ocr"
	"github.com/mhoffmann/blackout/internal/pdf"
	"github.com/mhoffmann/blackout/internal/providers"
	"github.com/mhoffmann/blackout/internal/redact"
)

// noVisionPlaceholder stands in for the vision section when image analysis
// is unavailable, keeping the prompt shape stable.
const noVisionPlaceholder = "No vision analysis available"

// PageResult reports the outcome of processing one page.
type PageResult struct {
	Page       int
	Redactions int
	UsedOCR    bool
	Err        error
}

// PageProcessor runs the per-page flow. All dependencies are shared and
// safe for concurrent use.
type PageProcessor struct {
	ocr       *ocr.Adapter
	extractor *findings.Extractor
	locator   *locate.Locator
	redactor  *redact.Applicator
	vision    providers.VisionClient
	logger    *slog.Logger
}

// NewPageProcessor wires the per-page flow. vision may be nil; image
// analysis is best effort.
func NewPageProcessor(adapter *ocr.Adapter, extractor *findings.Extractor, locator *locate.Locator, redactor *redact.Applicator, vision providers.VisionClient, logger *slog.Logger) *PageProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageProcessor{
		ocr:       adapter,
		extractor: extractor,
		locator:   locator,
		redactor:  redactor,
		vision:    vision,
		logger:    logger.With("component", "pipeline"),
	}
}

// Process runs detection and redaction for a single page. Failures on
// individual findings degrade to fewer redactions; only failures that
// prevent reading the page mark it failed.
func (pp *PageProcessor) Process(ctx context.Context, doc *pdf.Document, pageNum int, prefs findings.Preferences) PageResult {
	result := PageResult{Page: pageNum}

	page, err := doc.Page(pageNum)
	if err != nil {
		result.Err = fmt.Errorf("failed to load page %d: %w", pageNum, err)
		return result
	}

	result.UsedOCR = page.NeedsOCR()
	if result.UsedOCR && page.OCR() == nil {
		res, err := pp.ocr.ProcessPage(ctx, doc.Path(), pageNum)
		if err != nil {
			pp.logger.Warn("recognition failed, page text unavailable",
				"page", pageNum, "error", err)
		} else {
			page.AttachOCR(res)
		}
	}

	pageText := pp.formatPageText(ctx, doc, page)

	detected := pp.extractor.Extract(ctx, pageText, prefs)
	consolidated := findings.Consolidate(detected)
	validated := findings.Validate(consolidated, pageText, pp.logger)

	pp.logger.Info("page analyzed", "page", pageNum,
		"detected", len(detected), "validated", len(validated), "ocr", result.UsedOCR)

	var rects []pdf.Rect
	for _, f := range validated {
		rects = append(rects, pp.locator.Find(page, f.Text, result.UsedOCR)...)
	}

	applied, err := pp.redactor.CommitPage(ctx, doc, pageNum, rects)
	if err != nil {
		// The page stays in the output unredacted; the document level
		// reporting surfaces this.
		pp.logger.Error("failed to commit redactions", "page", pageNum, "error", err)
	}
	result.Redactions = applied
	return result
}

// formatPageText combines the page's renditions into the text the model
// analyzes. The vision section keeps its slot even without an analysis.
func (pp *PageProcessor) formatPageText(ctx context.Context, doc *pdf.Document, page *pdf.Page) string {
	text := page.Text()

	analysis := noVisionPlaceholder
	if pp.vision != nil {
		if described, err := pp.describePage(ctx, doc, page.Number); err != nil {
			pp.logger.Warn("vision analysis unavailable", "page", page.Number, "error", err)
		} else if described != "" {
			analysis = described
		}
	}

	return fmt.Sprintf(
		"These are different renditions of the same content to support analysis:\n\n"+
			"=== EXTRACTED TEXT ===\n%s\n\n"+
			"=== VISION ANALYSIS ===\n%s",
		text, analysis)
}

func (pp *PageProcessor) describePage(ctx context.Context, doc *pdf.Document, pageNum int) (string, error) {
	raster, err := pp.ocr.RenderPage(ctx, doc.Path(), pageNum)
	if err != nil {
		return "", err
	}
	return pp.vision.DescribeImage(ctx, raster)
}

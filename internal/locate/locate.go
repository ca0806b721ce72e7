// Package locate maps validated finding text to rectangles on a page,
// using the native text layer when present and OCR word boxes otherwise.
package locate

import (
	"log/slog"
	"math"
	"strings"

	"github.com/mhoffmann/blackout/internal/ocr"
	"github.com/mhoffmann/blackout/internal/pdf"
)

const (
	// MinWordConfidence gates OCR words used for localization (0-100).
	MinWordConfidence = 60

	// MaxCombinedWords bounds how many consecutive OCR words are joined
	// when searching for multi-word findings.
	MaxCombinedWords = 5

	// Rect plausibility bounds for native text layer hits. Hits outside
	// these are artifacts (whole-line spans, collapsed glyphs).
	MinRectDim       = 5.0
	MaxRectHeight    = 50.0
	MaxRectWidthFrac = 0.8

	// Overlap tolerances for deduplicating OCR hits.
	dupXTolerance = 20.0
	dupYTolerance = 5.0
)

// Locator finds page rectangles for finding text.
type Locator struct {
	logger *slog.Logger
}

// New creates a Locator.
func New(logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{logger: logger.With("component", "locate")}
}

// Find returns every plausible rectangle covering target on the page. The
// useOCR flag selects the OCR word-box path; it must match the source of
// the text the finding was detected in, since coordinates differ between
// the two layers.
func (l *Locator) Find(page *pdf.Page, target string, useOCR bool) []pdf.Rect {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil
	}

	var rects []pdf.Rect
	if useOCR && page.OCR() != nil {
		rects = l.findInOCR(page.OCR(), target)
	} else {
		rects = l.findInTextLayer(page, target)
	}

	if len(rects) == 0 {
		l.logger.Warn("finding could not be located on page", "page", page.Number)
	}
	return rects
}

// findInTextLayer searches the native layer and filters out implausible
// rectangles.
func (l *Locator) findInTextLayer(page *pdf.Page, target string) []pdf.Rect {
	var valid []pdf.Rect
	for _, r := range page.Search(target) {
		ok := r.X0 >= 0 && r.X0 < page.Width &&
			r.X1 >= 0 && r.X1 <= page.Width &&
			r.Y0 >= 0 && r.Y0 < page.Height &&
			r.Y1 >= 0 && r.Y1 <= page.Height &&
			r.Width() >= MinRectDim &&
			r.Height() >= MinRectDim &&
			r.Width() < page.Width*MaxRectWidthFrac &&
			r.Height() < MaxRectHeight
		if ok {
			valid = append(valid, r)
			l.logger.Debug("located in text layer", "page", page.Number,
				"x0", r.X0, "y0", r.Y0, "x1", r.X1, "y1", r.Y1)
		}
	}
	return valid
}

// findInOCR scans confident OCR words, joining up to MaxCombinedWords
// consecutive words per starting position. An exact match spans the whole
// window; a containment match narrows to the covered word sub-range by
// counting the spaces before the hit. Coordinates come back in page units.
func (l *Locator) findInOCR(res *ocr.Result, target string) []pdf.Rect {
	zoom := res.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	words := res.Words
	targetLower := strings.ToLower(target)

	var found []pdf.Rect
	i := 0
	for i < len(words) {
		if words[i].Confidence <= MinWordConfidence {
			i++
			continue
		}

		combined := ""
		startIdx := i
		wordCount := 0

		for i < len(words) && words[i].Confidence > MinWordConfidence && wordCount < MaxCombinedWords {
			w := strings.TrimSpace(words[i].Text)
			if w == "" {
				i++
				continue
			}

			test := strings.TrimSpace(combined + " " + w)
			testLower := strings.ToLower(test)

			if targetLower == testLower {
				found = appendDistinct(found, spanRect(words, startIdx, i, zoom))
				break
			}

			combined = test
			wordCount++
			i++

			if strings.Contains(testLower, targetLower) {
				startPos := strings.Index(testLower, targetLower)
				wordsBefore := strings.Count(test[:startPos], " ")
				wordsTarget := strings.Count(target, " ") + 1

				a := startIdx + wordsBefore
				b := a + wordsTarget - 1
				if b < len(words) {
					found = appendDistinct(found, spanRect(words, a, b, zoom))
				}
				break
			}
		}

		i = startIdx + 1
	}
	return found
}

// spanRect covers OCR words a through b, scaled from render pixels back to
// page units. Top-left corner comes from the first word, bottom-right from
// the last.
func spanRect(words []ocr.Word, a, b int, zoom float64) pdf.Rect {
	return pdf.Rect{
		X0: words[a].Left / zoom,
		Y0: words[a].Top / zoom,
		X1: (words[b].Left + words[b].Width) / zoom,
		Y1: (words[b].Top + words[b].Height) / zoom,
	}
}

// appendDistinct drops rects that overlap an already found one.
func appendDistinct(rects []pdf.Rect, r pdf.Rect) []pdf.Rect {
	for _, have := range rects {
		if math.Abs(have.X0-r.X0) < dupXTolerance && math.Abs(have.Y0-r.Y0) < dupYTolerance {
			return rects
		}
	}
	return append(rects, r)
}

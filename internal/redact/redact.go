// Package redact permanently removes content under finding rectangles.
// Affected pages are rasterized, painted over, and rebuilt from the
// raster, so the original text objects no longer exist in the output.
package redact

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/mhoffmann/blackout/internal/pdf"
)

// DefaultFillColor is the redaction fill in "r,g,b" form.
const DefaultFillColor = "0,0,0"

// Renderer rasterizes one page of a PDF file at a fixed zoom.
type Renderer interface {
	RenderPage(ctx context.Context, pdfPath string, pageNum int) ([]byte, error)
	Zoom() float64
}

// Applicator paints redaction rectangles onto pages and replaces them in
// the document.
type Applicator struct {
	renderer Renderer
	logger   *slog.Logger

	// Fill color follows config hot reload.
	mu   sync.RWMutex
	fill color.RGBA
}

// New creates an Applicator. fillColor is "r,g,b" with 0-255 components;
// empty means black.
func New(renderer Renderer, fillColor string, logger *slog.Logger) (*Applicator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fill, err := ParseFillColor(fillColor)
	if err != nil {
		return nil, err
	}
	return &Applicator{
		renderer: renderer,
		fill:     fill,
		logger:   logger.With("component", "redact"),
	}, nil
}

// SetFillColor replaces the fill. An unparseable value is rejected and the
// current fill stays in effect.
func (a *Applicator) SetFillColor(fillColor string) error {
	fill, err := ParseFillColor(fillColor)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.fill = fill
	a.mu.Unlock()
	return nil
}

func (a *Applicator) fillColor() color.RGBA {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.fill
}

// ParseFillColor parses an "r,g,b" triple into an opaque color.
func ParseFillColor(s string) (color.RGBA, error) {
	if strings.TrimSpace(s) == "" {
		s = DefaultFillColor
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return color.RGBA{}, fmt.Errorf("fill color %q: want r,g,b", s)
	}
	var vals [3]uint8
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return color.RGBA{}, fmt.Errorf("fill color %q: component %q out of range", s, p)
		}
		vals[i] = uint8(n)
	}
	return color.RGBA{R: vals[0], G: vals[1], B: vals[2], A: 255}, nil
}

// Dedup drops rectangles that collapse to the same position at 0.1 page
// unit precision. Findings located twice on the same spot produce one box.
func Dedup(rects []pdf.Rect) []pdf.Rect {
	seen := make(map[string]struct{}, len(rects))
	out := make([]pdf.Rect, 0, len(rects))
	for _, r := range rects {
		key := fmt.Sprintf("%.1f,%.1f,%.1f,%.1f", r.X0, r.Y0, r.X1, r.Y1)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// CommitPage rasterizes the page, paints the deduplicated rectangles, and
// replaces the page in the document with one rebuilt from the raster.
// Returns the number of boxes painted; zero rects is a no-op.
func (a *Applicator) CommitPage(ctx context.Context, doc *pdf.Document, pageNum int, rects []pdf.Rect) (int, error) {
	rects = Dedup(rects)
	if len(rects) == 0 {
		return 0, nil
	}

	raster, err := a.renderer.RenderPage(ctx, doc.Path(), pageNum)
	if err != nil {
		return 0, fmt.Errorf("failed to render page %d: %w", pageNum, err)
	}
	src, err := png.Decode(bytes.NewReader(raster))
	if err != nil {
		return 0, fmt.Errorf("failed to decode page %d raster: %w", pageNum, err)
	}

	img := image.NewRGBA(src.Bounds())
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)

	zoom := a.renderer.Zoom()
	if zoom <= 0 {
		zoom = 1
	}
	fill := a.fillColor()
	for _, r := range rects {
		box := image.Rect(
			int(math.Floor(r.X0*zoom)),
			int(math.Floor(r.Y0*zoom)),
			int(math.Ceil(r.X1*zoom)),
			int(math.Ceil(r.Y1*zoom)),
		).Intersect(img.Bounds())
		draw.Draw(img, box, &image.Uniform{C: fill}, image.Point{}, draw.Src)
	}

	pngPath := filepath.Join(doc.Dir(), fmt.Sprintf("redact-%04d.png", pageNum))
	f, err := os.Create(pngPath)
	if err != nil {
		return 0, fmt.Errorf("failed to write page %d raster: %w", pageNum, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to encode page %d raster: %w", pageNum, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to write page %d raster: %w", pageNum, err)
	}

	// Telling the importer the raster's true DPI keeps the rebuilt page
	// at the original page dimensions.
	imp, err := api.Import(fmt.Sprintf("dpi:%d", int(zoom*72)), types.POINTS)
	if err != nil {
		return 0, fmt.Errorf("failed to build import config: %w", err)
	}
	pagePDF := filepath.Join(doc.Dir(), fmt.Sprintf("redacted-%04d.pdf", pageNum))
	if err := api.ImportImagesFile([]string{pngPath}, pagePDF, imp, nil); err != nil {
		return 0, fmt.Errorf("failed to rebuild page %d: %w", pageNum, err)
	}

	if err := doc.ReplacePage(pageNum, pagePDF); err != nil {
		return 0, err
	}
	a.logger.Info("page redacted", "page", pageNum, "boxes", len(rects))
	return len(rects), nil
}

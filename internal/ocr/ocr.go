// Package ocr renders PDF pages to images and recognizes text on them,
// keeping per-word confidences and pixel boxes so findings can be located
// on pages without a usable text layer.
package ocr

import (
	"context"
	"strings"
)

// Word is a single recognized token with its pixel bounding box at render
// resolution. Confidence is the raw engine score in 0-100.
type Word struct {
	Text       string
	Confidence float64
	Left       float64
	Top        float64
	Width      float64
	Height     float64
}

// Result is the outcome of recognizing one rendered page. Coordinates in
// Words must be divided by Zoom to map back into page space.
type Result struct {
	Words []Word
	Zoom  float64
}

// Text linearizes the recognized words into a single string.
func (r *Result) Text() string {
	parts := make([]string, 0, len(r.Words))
	for _, w := range r.Words {
		if t := strings.TrimSpace(w.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Engine recognizes text on an encoded page image.
type Engine interface {
	// Name returns the engine identifier (e.g., "tesseract").
	Name() string

	// Recognize extracts words with confidences and boxes from an image.
	Recognize(ctx context.Context, image []byte, languages []string) (*Result, error)
}

// Renderer rasterizes one page of a PDF file.
type Renderer interface {
	// RenderPage returns the encoded PNG for a 1-based page number.
	RenderPage(ctx context.Context, pdfPath string, pageNum int) ([]byte, error)

	// Zoom returns the scale factor between rendered pixels and page units.
	Zoom() float64
}

// Adapter ties a renderer and an engine together for the pipeline: render
// the page, recognize it, stamp the render zoom onto the result.
type Adapter struct {
	renderer  Renderer
	engine    Engine
	languages []string
}

// NewAdapter creates an OCR adapter.
func NewAdapter(renderer Renderer, engine Engine, languages []string) *Adapter {
	if len(languages) == 0 {
		languages = []string{"deu", "eng"}
	}
	return &Adapter{renderer: renderer, engine: engine, languages: languages}
}

// ProcessPage renders and recognizes a single page.
func (a *Adapter) ProcessPage(ctx context.Context, pdfPath string, pageNum int) (*Result, error) {
	image, err := a.renderer.RenderPage(ctx, pdfPath, pageNum)
	if err != nil {
		return nil, err
	}
	res, err := a.engine.Recognize(ctx, image, a.languages)
	if err != nil {
		return nil, err
	}
	res.Zoom = a.renderer.Zoom()
	return res, nil
}

// RenderPage exposes the underlying renderer, for callers that need the
// raw page image (vision analysis, redaction commit).
func (a *Adapter) RenderPage(ctx context.Context, pdfPath string, pageNum int) ([]byte, error) {
	return a.renderer.RenderPage(ctx, pdfPath, pageNum)
}

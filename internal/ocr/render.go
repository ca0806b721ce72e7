package ocr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// DefaultZoom is the render scale for OCR and redaction rasterization:
// 2x page resolution (144 DPI).
const DefaultZoom = 2.0

// pdfPointsDPI is the nominal resolution of PDF user space.
const pdfPointsDPI = 72

// PdftoppmRenderer rasterizes pages with pdftoppm (poppler-utils).
type PdftoppmRenderer struct {
	zoom float64
}

// NewPdftoppmRenderer creates a renderer at the given zoom factor.
func NewPdftoppmRenderer(zoom float64) *PdftoppmRenderer {
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	return &PdftoppmRenderer{zoom: zoom}
}

// Zoom returns the pixels-per-page-unit scale factor.
func (r *PdftoppmRenderer) Zoom() float64 { return r.zoom }

// RenderPage renders a single 1-based page to PNG bytes.
func (r *PdftoppmRenderer) RenderPage(ctx context.Context, pdfPath string, pageNum int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "blackout-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")
	dpi := int(r.zoom * pdfPointsDPI)

	pageStr := fmt.Sprintf("%d", pageNum)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", dpi),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not produce expected output: %w", err)
	}
	return data, nil
}

// Verify interface
var _ Renderer = (*PdftoppmRenderer)(nil)

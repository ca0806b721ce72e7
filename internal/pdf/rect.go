// Package pdf wraps document access for the anonymization pipeline: page
// counting and splicing via pdfcpu, and the native text layer via
// ledongthuc/pdf.
package pdf

// Rect is an axis-aligned rectangle in page units with a top-left origin.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

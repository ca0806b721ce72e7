package pdf

import (
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/mhoffmann/blackout/internal/ocr"
)

// minExtractableChars is the native text layer quality bar: less than this
// many characters means the page goes through OCR.
const minExtractableChars = 10

// Page is one document page with its parsed text layer. OCR results are
// attached later by the pipeline when the native layer is unusable.
type Page struct {
	Number int
	Width  float64
	Height float64

	runs     []pdflib.Text
	plain    string
	needsOCR bool

	ocrResult *ocr.Result
}

// loadPage parses the text layer for a 1-based page. The parser panics on
// some malformed documents; any failure degrades to the OCR path.
func (d *Document) loadPage(n int) (p *Page) {
	p = &Page{Number: n, Width: 612, Height: 792, needsOCR: true}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("text layer parse failed, falling back to OCR",
				"page", n, "panic", r)
			p.runs = nil
			p.plain = ""
			p.needsOCR = true
		}
	}()

	if d.reader == nil {
		return p
	}

	page := d.reader.Page(n)
	if page.V.IsNull() {
		return p
	}

	if w, h, ok := mediaBoxSize(page.V); ok {
		p.Width, p.Height = w, h
	}

	content := page.Content()
	p.runs = content.Text

	plain, err := page.GetPlainText(nil)
	if err != nil {
		d.logger.Warn("plain text extraction failed, falling back to OCR",
			"page", n, "error", err)
		return p
	}
	p.plain = plain

	hasFonts := hasEmbeddedFonts(page)
	hasText := len(strings.TrimSpace(plain)) > minExtractableChars
	p.needsOCR = !(hasFonts && hasText)
	return p
}

// Text returns the page text the detection model sees: native layer text
// when the page has one, OCR text otherwise.
func (p *Page) Text() string {
	if p.needsOCR && p.ocrResult != nil {
		return p.ocrResult.Text()
	}
	return p.plain
}

// SetRuns replaces the page's positioned text runs. Pages loaded through
// Document get their runs from the parsed content stream; this exists for
// constructing pages directly.
func (p *Page) SetRuns(runs []pdflib.Text) {
	p.runs = runs
	p.needsOCR = false
}

// NeedsOCR reports whether the native text layer is unusable for this page.
func (p *Page) NeedsOCR() bool { return p.needsOCR }

// AttachOCR stores the recognition result for a page that needed OCR.
func (p *Page) AttachOCR(res *ocr.Result) { p.ocrResult = res }

// OCR returns the attached recognition result, or nil.
func (p *Page) OCR() *ocr.Result { return p.ocrResult }

// mediaBoxSize resolves the page size, following Parent links since the
// MediaBox entry may be inherited.
func mediaBoxSize(v pdflib.Value) (w, h float64, ok bool) {
	for depth := 0; depth < 16 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if !box.IsNull() && box.Len() == 4 {
			x0 := box.Index(0).Float64()
			y0 := box.Index(1).Float64()
			x1 := box.Index(2).Float64()
			y1 := box.Index(3).Float64()
			if x1 > x0 && y1 > y0 {
				return x1 - x0, y1 - y0, true
			}
		}
		v = v.Key("Parent")
	}
	return 0, 0, false
}

// hasEmbeddedFonts probes the page's font resources for an embedded font
// program. Composite fonts carry the descriptor on their descendants.
func hasEmbeddedFonts(page pdflib.Page) bool {
	for _, name := range page.Fonts() {
		font := page.Font(name)
		if fontDescriptorEmbedded(font.V.Key("FontDescriptor")) {
			return true
		}
		desc := font.V.Key("DescendantFonts")
		for i := 0; i < desc.Len(); i++ {
			if fontDescriptorEmbedded(desc.Index(i).Key("FontDescriptor")) {
				return true
			}
		}
	}
	return false
}

func fontDescriptorEmbedded(fd pdflib.Value) bool {
	if fd.IsNull() {
		return false
	}
	for _, key := range []string{"FontFile", "FontFile2", "FontFile3"} {
		if !fd.Key(key).IsNull() {
			return true
		}
	}
	return false
}

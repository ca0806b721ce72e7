package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/mhoffmann/blackout/internal/findings"
	"github.com/mhoffmann/blackout/internal/locate"
	"github.com/mhoffmann/blackout/internal/ocr"
	"github.com/mhoffmann/blackout/internal/pdf"
	"github.com/mhoffmann/blackout/internal/providers"
	"github.com/mhoffmann/blackout/internal/redact"
)

func openTestDoc(t *testing.T, data []byte) *pdf.Document {
	t.Helper()
	doc, err := pdf.OpenDocument(context.Background(), data, nil)
	if err != nil {
		t.Fatalf("open document: %v", err)
	}
	t.Cleanup(func() { doc.Close() })
	return doc
}

// whitePNG renders a blank page image.
func whitePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// makeTestPDF builds an image-only PDF with the given page count.
func makeTestPDF(t *testing.T, pages int) []byte {
	t.Helper()
	dir := t.TempDir()

	data := whitePNG(t, 200, 280)
	imgs := make([]string, 0, pages)
	for i := 0; i < pages; i++ {
		p := filepath.Join(dir, "page.png")
		if i == 0 {
			if err := os.WriteFile(p, data, 0o644); err != nil {
				t.Fatalf("write png: %v", err)
			}
		}
		imgs = append(imgs, p)
	}

	out := filepath.Join(dir, "doc.pdf")
	if err := api.ImportImagesFile(imgs, out, nil, nil); err != nil {
		t.Fatalf("build test pdf: %v", err)
	}
	pdfBytes, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read test pdf: %v", err)
	}
	return pdfBytes
}

type fakeRenderer struct {
	img []byte
}

func (f *fakeRenderer) RenderPage(_ context.Context, _ string, _ int) ([]byte, error) {
	return f.img, nil
}

func (f *fakeRenderer) Zoom() float64 { return 2 }

type fakeEngine struct {
	words []ocr.Word
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(_ context.Context, _ []byte, _ []string) (*ocr.Result, error) {
	return &ocr.Result{Words: f.words}, nil
}

func newTestOrchestrator(t *testing.T, llm *providers.MockLLM, words []ocr.Word, workers int) *Orchestrator {
	t.Helper()
	renderer := &fakeRenderer{img: whitePNG(t, 400, 560)}
	adapter := ocr.NewAdapter(renderer, &fakeEngine{words: words}, nil)

	extractor := findings.NewExtractor(llm, nil, nil, findings.ExtractorConfig{
		MaxAttempts: 1,
		InitialWait: time.Millisecond,
		MaxWait:     time.Millisecond,
	})
	redactor, err := redact.New(renderer, "0,0,0", nil)
	if err != nil {
		t.Fatalf("redactor: %v", err)
	}
	proc := NewPageProcessor(adapter, extractor, locate.New(nil), redactor, nil, nil)
	return NewOrchestrator(proc, nil, workers, nil)
}

func TestRunProgressReachesTotal(t *testing.T) {
	const pages = 3
	input := makeTestPDF(t, pages)
	llm := &providers.MockLLM{Responses: []string{`{"findings":[]}`}}
	o := newTestOrchestrator(t, llm, nil, 2)

	var mu sync.Mutex
	var seen []int
	res, err := o.Run(context.Background(), input, findings.DefaultPreferences(), func(completed, total int) {
		mu.Lock()
		seen = append(seen, completed)
		mu.Unlock()
		if total != pages {
			t.Errorf("total = %d, want %d", total, pages)
		}
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.TotalPages != pages {
		t.Errorf("TotalPages = %d, want %d", res.TotalPages, pages)
	}
	if len(res.Output) == 0 {
		t.Error("no output document produced")
	}
	if len(res.FailedPages) != 0 {
		t.Errorf("unexpected failed pages %v", res.FailedPages)
	}

	// Progress counts completed pages: every count from 1..pages appears
	// exactly once.
	sort.Ints(seen)
	if len(seen) != pages {
		t.Fatalf("expected %d progress reports, got %d", pages, len(seen))
	}
	for i, c := range seen {
		if c != i+1 {
			t.Errorf("progress sequence %v is not 1..%d", seen, pages)
			break
		}
	}
}

func TestRunDisabledPreferencesSkipModel(t *testing.T) {
	input := makeTestPDF(t, 2)
	llm := &providers.MockLLM{Responses: []string{`{"findings":[]}`}}
	o := newTestOrchestrator(t, llm, nil, 1)

	prefs := findings.Preferences{}
	for _, c := range findings.Categories() {
		prefs[c] = false
	}

	res, err := o.Run(context.Background(), input, prefs, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if llm.Calls() != 0 {
		t.Errorf("model called %d times with all categories disabled", llm.Calls())
	}
	if res.Redactions != 0 {
		t.Errorf("expected zero redactions, got %d", res.Redactions)
	}
}

func TestRunRejectsInvalidDocument(t *testing.T) {
	llm := &providers.MockLLM{Responses: []string{`{"findings":[]}`}}
	o := newTestOrchestrator(t, llm, nil, 1)

	if _, err := o.Run(context.Background(), []byte("not a pdf"), findings.DefaultPreferences(), nil); err == nil {
		t.Fatal("expected error for invalid input")
	}
}

func TestRunRedactsLocatedFinding(t *testing.T) {
	input := makeTestPDF(t, 1)
	// The OCR layer carries the text; the model flags the name; the words
	// are confidently boxed, so exactly one region is painted.
	words := []ocr.Word{
		{Text: "Kontakt:", Confidence: 95, Left: 100, Top: 200, Width: 160, Height: 40},
		{Text: "Max", Confidence: 93, Left: 280, Top: 200, Width: 80, Height: 40},
		{Text: "Mustermann", Confidence: 91, Left: 380, Top: 200, Width: 240, Height: 40},
	}
	llm := &providers.MockLLM{Responses: []string{`{
		"document_type": "letter",
		"findings": [
			{"text": "Max Mustermann", "type": "names", "start_index": 0, "confidence": 0.97, "reason": "personal name"}
		]
	}`}}
	o := newTestOrchestrator(t, llm, words, 1)

	res, err := o.Run(context.Background(), input, findings.DefaultPreferences(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Redactions != 1 {
		t.Errorf("expected 1 redaction, got %d", res.Redactions)
	}
	if res.OCRPages != 1 {
		t.Errorf("image-only page must go through OCR, got %d", res.OCRPages)
	}
	if len(res.Output) == 0 {
		t.Error("no output document produced")
	}
}

func TestFormatPageTextKeepsVisionSlot(t *testing.T) {
	renderer := &fakeRenderer{img: whitePNG(t, 10, 10)}
	adapter := ocr.NewAdapter(renderer, &fakeEngine{}, nil)
	pp := NewPageProcessor(adapter, nil, nil, nil, nil, nil)

	doc := openTestDoc(t, makeTestPDF(t, 1))
	page, err := doc.Page(1)
	if err != nil {
		t.Fatalf("page: %v", err)
	}

	text := pp.formatPageText(context.Background(), doc, page)
	if !bytes.Contains([]byte(text), []byte("=== EXTRACTED TEXT ===")) {
		t.Error("missing extracted text section")
	}
	if !bytes.Contains([]byte(text), []byte(noVisionPlaceholder)) {
		t.Error("missing vision placeholder")
	}
}

func TestFormatPageTextIncludesVisionAnalysis(t *testing.T) {
	renderer := &fakeRenderer{img: whitePNG(t, 10, 10)}
	adapter := ocr.NewAdapter(renderer, &fakeEngine{}, nil)
	vision := &providers.MockVision{Description: "A letter with a sender address."}
	pp := NewPageProcessor(adapter, nil, nil, nil, vision, nil)

	doc := openTestDoc(t, makeTestPDF(t, 1))
	page, err := doc.Page(1)
	if err != nil {
		t.Fatalf("page: %v", err)
	}

	text := pp.formatPageText(context.Background(), doc, page)
	if !bytes.Contains([]byte(text), []byte(vision.Description)) {
		t.Error("vision analysis not included in page text")
	}
}

package ocr

import (
	"context"
	"errors"
	"testing"
)

type scriptedRenderer struct {
	img  []byte
	err  error
	zoom float64
}

func (r *scriptedRenderer) RenderPage(context.Context, string, int) ([]byte, error) {
	return r.img, r.err
}

func (r *scriptedRenderer) Zoom() float64 { return r.zoom }

type scriptedEngine struct {
	result *Result
	err    error

	gotLanguages []string
}

func (e *scriptedEngine) Name() string { return "scripted" }

func (e *scriptedEngine) Recognize(_ context.Context, _ []byte, languages []string) (*Result, error) {
	e.gotLanguages = languages
	return e.result, e.err
}

func TestAdapterStampsZoom(t *testing.T) {
	engine := &scriptedEngine{result: &Result{Words: []Word{{Text: "hello", Confidence: 90}}}}
	a := NewAdapter(&scriptedRenderer{img: []byte("png"), zoom: 2}, engine, nil)

	res, err := a.ProcessPage(context.Background(), "doc.pdf", 1)
	if err != nil {
		t.Fatalf("ProcessPage: %v", err)
	}
	if res.Zoom != 2 {
		t.Errorf("zoom = %v, want 2", res.Zoom)
	}
}

func TestAdapterDefaultLanguages(t *testing.T) {
	engine := &scriptedEngine{result: &Result{}}
	a := NewAdapter(&scriptedRenderer{img: []byte("png"), zoom: 2}, engine, nil)

	if _, err := a.ProcessPage(context.Background(), "doc.pdf", 1); err != nil {
		t.Fatalf("ProcessPage: %v", err)
	}
	if len(engine.gotLanguages) != 2 || engine.gotLanguages[0] != "deu" || engine.gotLanguages[1] != "eng" {
		t.Errorf("default languages = %v, want [deu eng]", engine.gotLanguages)
	}
}

func TestAdapterPropagatesRenderError(t *testing.T) {
	renderErr := errors.New("pdftoppm failed")
	a := NewAdapter(&scriptedRenderer{err: renderErr, zoom: 2}, &scriptedEngine{}, nil)

	if _, err := a.ProcessPage(context.Background(), "doc.pdf", 1); !errors.Is(err, renderErr) {
		t.Errorf("expected render error, got %v", err)
	}
}

func TestResultText(t *testing.T) {
	res := &Result{Words: []Word{
		{Text: "Kontakt:"},
		{Text: "  "},
		{Text: "Max"},
		{Text: ""},
		{Text: "Mustermann"},
	}}
	if got := res.Text(); got != "Kontakt: Max Mustermann" {
		t.Errorf("Text() = %q", got)
	}
}

func TestRendererZoomDefaults(t *testing.T) {
	r := NewPdftoppmRenderer(0)
	if r.Zoom() != DefaultZoom {
		t.Errorf("zoom = %v, want %v", r.Zoom(), DefaultZoom)
	}
}

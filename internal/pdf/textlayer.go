package pdf

import (
	"strings"
	"unicode"
)

// baselineTolerance groups character runs onto the same visual line.
const baselineTolerance = 2.0

// streamChar is one non-space character of the page stream with the index
// of the run it came from.
type streamChar struct {
	r   rune
	run int
}

// Search finds every occurrence of target in the page's native text layer
// and returns one rectangle per line the match spans, in top-origin page
// units. Matching is case-insensitive and ignores whitespace, since the
// character stream does not reliably encode spaces.
func (p *Page) Search(target string) []Rect {
	needle := foldRunes(target)
	if len(needle) == 0 || len(p.runs) == 0 {
		return nil
	}

	stream := make([]streamChar, 0, len(p.runs))
	for i, run := range p.runs {
		for _, r := range run.S {
			if unicode.IsSpace(r) {
				continue
			}
			stream = append(stream, streamChar{r: unicode.ToLower(r), run: i})
		}
	}

	var rects []Rect
	for start := 0; start+len(needle) <= len(stream); {
		if !matchAt(stream, start, needle) {
			start++
			continue
		}

		// One rect per baseline the match covers.
		var lineRuns []int
		var lastY float64
		flush := func() {
			if r, ok := p.runsRect(lineRuns); ok {
				rects = append(rects, r)
			}
			lineRuns = lineRuns[:0]
		}
		for i := 0; i < len(needle); i++ {
			ri := stream[start+i].run
			y := p.runs[ri].Y
			if len(lineRuns) > 0 && abs(y-lastY) > baselineTolerance {
				flush()
			}
			lineRuns = append(lineRuns, ri)
			lastY = y
		}
		flush()

		start += len(needle)
	}
	return rects
}

func matchAt(stream []streamChar, start int, needle []rune) bool {
	for i, r := range needle {
		if stream[start+i].r != r {
			return false
		}
	}
	return true
}

// runsRect builds the top-origin bounding rect of a set of same-line runs.
// Run coordinates are baseline positions in a bottom-left origin.
func (p *Page) runsRect(runIdxs []int) (Rect, bool) {
	if len(runIdxs) == 0 {
		return Rect{}, false
	}
	first := p.runs[runIdxs[0]]
	x0, x1 := first.X, first.X+first.W
	baseline := first.Y
	fontSize := first.FontSize
	for _, ri := range runIdxs[1:] {
		run := p.runs[ri]
		if run.X < x0 {
			x0 = run.X
		}
		if run.X+run.W > x1 {
			x1 = run.X + run.W
		}
		if run.FontSize > fontSize {
			fontSize = run.FontSize
		}
	}
	if fontSize <= 0 {
		fontSize = 10
	}
	// Convert the baseline to a top-origin box covering ascent and a
	// small descender allowance.
	top := p.Height - baseline - fontSize
	bottom := p.Height - baseline + fontSize*0.25
	return Rect{X0: x0, Y0: top, X1: x1, Y1: bottom}, true
}

func foldRunes(s string) []rune {
	var out []rune
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

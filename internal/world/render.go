package world

import (
	"fmt"
)

// Renderer receives the draw calls of one frame. Coordinates are room pixels.
type Renderer interface {
	DrawSprite(sprite, subimage int, x, y float64)
	DrawText(x, y float64, text string)
	DrawRectangle(x1, y1, x2, y2 float64, outline bool)
	DrawLine(x1, y1, x2, y2 float64)
	DrawCircle(x, y, r float64, outline bool)
	SetColor(color int)
}

type NoopRenderer struct{}

func (NoopRenderer) DrawSprite(int, int, float64, float64) {}
func (NoopRenderer) DrawText(float64, float64, string) {}
func (NoopRenderer) DrawRectangle(float64, float64, float64, float64, bool) {}
func (NoopRenderer) DrawLine(float64, float64, float64, float64) {}
func (NoopRenderer) DrawCircle(float64, float64, float64, bool) {}
func (NoopRenderer) SetColor(int) {}

// Recorder keeps every draw call as a line of text.
type Recorder struct {
	Calls []string
}

func (r *Recorder) record(format string, args ...interface{}) {
	r.Calls = append(r.Calls, fmt.Sprintf(format, args...))
}

func (r *Recorder) DrawSprite(sprite, subimage int, x, y float64) {
	r.record("sprite %d %d %g %g", sprite, subimage, x, y)
}

func (r *Recorder) DrawText(x, y float64, text string) {
	r.record("text %g %g %q", x, y, text)
}

func (r *Recorder) DrawRectangle(x1, y1, x2, y2 float64, outline bool) {
	r.record("rectangle %g %g %g %g %t", x1, y1, x2, y2, outline)
}

func (r *Recorder) DrawLine(x1, y1, x2, y2 float64) {
	r.record("line %g %g %g %g", x1, y1, x2, y2)
}

func (r *Recorder) DrawCircle(x, y, radius float64, outline bool) {
	r.record("circle %g %g %g %t", x, y, radius, outline)
}

func (r *Recorder) SetColor(color int) {
	r.record("color %d", color)
}

// Reset forgets the recorded calls.
func (r *Recorder) Reset() {
	r.Calls = r.Calls[:0]
}

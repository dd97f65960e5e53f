package project

import (
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-errors/errors"
	"golang.org/x/image/bmp"
)

// Rect is an inclusive pixel rectangle relative to the sprite's top-left.
type Rect struct {
	Left, Top, Right, Bottom int
}

// Empty reports a rectangle with no pixels.
func (r Rect) Empty() bool {
	return r.Right < r.Left || r.Bottom < r.Top
}

var emptyRect = Rect{Left: 0, Top: 0, Right: -1, Bottom: -1}

func (s *Sprite) plainFrames() {
	n := s.FrameCount
	if n <= 0 {
		n = 1
	}
	s.Frames = make([]*Frame, n)
	for i := range s.Frames {
		pixels := make([]byte, s.Width*s.Height*4)
		for p := 3; p < len(pixels); p += 4 {
			pixels[p] = 0xff
		}
		s.Frames[i] = &Frame{Width: s.Width, Height: s.Height, Pixels: pixels}
	}
	s.BBox = boundingBox(s.Frames)
}

func (s *Sprite) loadImages(dir string) error {
	s.Frames = s.Frames[:0]
	for _, name := range s.Images {
		frame, err := decodeFrame(filepath.Join(dir, name))
		if err != nil {
			return errors.Errorf("sprite %s: %v", s.Name, err)
		}
		s.Frames = append(s.Frames, frame)
	}
	s.Width, s.Height = s.Frames[0].Width, s.Frames[0].Height
	s.FrameCount = len(s.Frames)
	s.BBox = boundingBox(s.Frames)
	return nil
}

func decodeFrame(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		img, err = bmp.Decode(f)
	case ".png":
		img, err = png.Decode(f)
	default:
		return nil, errors.Errorf("%s: unsupported image format", path)
	}
	if err != nil {
		return nil, errors.Errorf("%s: %v", path, err)
	}
	return NewFrame(img), nil
}

// NewFrame converts any image to an RGBA8 frame.
func NewFrame(img image.Image) *Frame {
	b := img.Bounds()
	rgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return &Frame{Width: b.Dx(), Height: b.Dy(), Pixels: rgba.Pix}
}

// opaque reports whether the pixel at (x, y) has any alpha.
func (f *Frame) opaque(x, y int) bool {
	return f.Pixels[(y*f.Width+x)*4+3] != 0
}

// boundingBox is the smallest rectangle holding every opaque pixel of every
// frame.
func boundingBox(frames []*Frame) Rect {
	box := emptyRect
	for _, f := range frames {
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				if !f.opaque(x, y) {
					continue
				}
				if box.Empty() {
					box = Rect{Left: x, Top: y, Right: x, Bottom: y}
					continue
				}
				box.Left = min(box.Left, x)
				box.Top = min(box.Top, y)
				box.Right = max(box.Right, x)
				box.Bottom = max(box.Bottom, y)
			}
		}
	}
	return box
}

// Package carousel computes the state of the image carousel shown on post
// pages and the cover size of feed cards.
package carousel

import (
	"fmt"

	"github.com/hetaoshu/hetaoshu-web/internal/domain"
)

const (
	DefaultMaxAspect      = 1.34
	DefaultFallbackAspect = 0.75
)

// HeightRatio is height/width of the container: the tallest image of the
// set decides, capped at maxAspect. Images without known dimensions are
// ignored; when none are known the ratio is fallback.
func HeightRatio(images []domain.Image, maxAspect, fallback float64) float64 {
	tallest := 0.0
	for _, img := range images {
		if !img.HasSize() {
			continue
		}
		if r := float64(img.Height) / float64(img.Width); r > tallest {
			tallest = r
		}
	}
	if tallest == 0 {
		return fallback
	}
	return min(tallest, maxAspect)
}

// View is the carousel at one position. Navigation never wraps: stepping
// back from the first image or forward from the last stays in place.
type View struct {
	Images  []domain.Image
	Current int
	Ratio   float64
}

type Indicator struct {
	Index  int
	Active bool
}

// NewView clamps requested into the valid index range.
func NewView(images []domain.Image, requested int, ratio float64) View {
	v := View{Images: images, Ratio: ratio}
	switch {
	case len(images) == 0 || requested < 0:
		v.Current = 0
	case requested >= len(images):
		v.Current = len(images) - 1
	default:
		v.Current = requested
	}
	return v
}

func (v View) Empty() bool { return len(v.Images) == 0 }

// Single reports a one-image set, which renders without controls.
func (v View) Single() bool { return len(v.Images) == 1 }

func (v View) HasPrev() bool { return v.Current > 0 }

func (v View) HasNext() bool { return v.Current < len(v.Images)-1 }

func (v View) Prev() int {
	if v.HasPrev() {
		return v.Current - 1
	}
	return v.Current
}

func (v View) Next() int {
	if v.HasNext() {
		return v.Current + 1
	}
	return v.Current
}

func (v View) CurrentImage() domain.Image {
	if v.Empty() {
		return domain.Image{}
	}
	return v.Images[v.Current]
}

// Counter is the "i/N" position label, 1-based.
func (v View) Counter() string {
	return fmt.Sprintf("%d/%d", v.Current+1, len(v.Images))
}

func (v View) Indicators() []Indicator {
	out := make([]Indicator, len(v.Images))
	for i := range v.Images {
		out[i] = Indicator{Index: i, Active: i == v.Current}
	}
	return out
}

// PaddingBottom expresses Ratio as a CSS padding-bottom percentage, which
// keeps the container proportional to its width on every resize.
func (v View) PaddingBottom() string {
	return PaddingBottom(v.Ratio)
}

// Offset is the translateX percentage that brings the current slide into
// view.
func (v View) Offset() string {
	return fmt.Sprintf("-%d%%", v.Current*100)
}

func PaddingBottom(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}

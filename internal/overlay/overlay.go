// Package overlay rasterizes the tracked hand skeletons and the projected
// target onto an image for debugging and remote preview.
package overlay

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/ayusman/handsphere/internal/detector"
	"github.com/ayusman/handsphere/internal/engine"
	"github.com/ayusman/handsphere/internal/geometry"
)

// Hand colors and fingertip highlight.
var (
	LeftHandColor  = color.NRGBA{R: 0x00, G: 0xFF, B: 0x00, A: 0xFF}
	RightHandColor = color.NRGBA{R: 0x00, G: 0xFF, B: 0xFF, A: 0xFF}
	TipColor       = color.NRGBA{R: 0xFF, G: 0x00, B: 0x00, A: 0xFF}
	OutlineColor   = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

// TargetAlpha is the opacity of the filled target disc.
const TargetAlpha = 0x50

const circleSegments = 32

// Renderer draws overlays at a fixed resolution.
type Renderer struct {
	width, height int
	lineWidth     float32
	pointRadius   float32
	rast          *vector.Rasterizer
}

// NewRenderer creates a renderer for width x height images. Stroke and
// point sizes scale with the shorter side.
func NewRenderer(width, height int) *Renderer {
	short := float32(min(width, height))
	return &Renderer{
		width:       width,
		height:      height,
		lineWidth:   clamp(short/300, 2, 5),
		pointRadius: clamp(short/250, 2, 8) * 1.2,
		rast:        vector.NewRasterizer(width, height),
	}
}

// Bounds returns the rectangle of rendered images.
func (r *Renderer) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.width, r.height)
}

// Render draws the target and hands over background. A nil background
// yields a transparent canvas; otherwise the background is scaled to fit.
func (r *Renderer) Render(hands []detector.HandLandmarks, target engine.TargetState, background image.Image) *image.NRGBA {
	canvas := image.NewNRGBA(r.Bounds())
	if background != nil {
		draw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), background, background.Bounds(), draw.Src, nil)
	}

	r.drawTarget(canvas, target)
	for i := range hands {
		r.drawHand(canvas, &hands[i])
	}
	return canvas
}

func (r *Renderer) drawTarget(dst draw.Image, target engine.TargetState) {
	center := r.project(geometry.ToNormalized(target.WorldPosition))
	rx := float32(target.WorldRadius / geometry.WorldScale * float64(r.width))
	ry := float32(target.WorldRadius / geometry.WorldScale * float64(r.height))
	if rx <= 0 || ry <= 0 {
		return
	}

	fill := target.Color.ToRGBA()
	r.fill(dst, color.NRGBA{R: fill.R, G: fill.G, B: fill.B, A: TargetAlpha}, func() {
		r.ellipse(center, rx, ry, false)
	})

	half := r.lineWidth / 2
	r.fill(dst, OutlineColor, func() {
		r.ellipse(center, rx+half, ry+half, false)
		if rx > half && ry > half {
			r.ellipse(center, rx-half, ry-half, true)
		}
	})
}

func (r *Renderer) drawHand(dst draw.Image, hand *detector.HandLandmarks) {
	handColor := RightHandColor
	if hand.Handedness == detector.Left {
		handColor = LeftHandColor
	}

	r.fill(dst, handColor, func() {
		for _, c := range detector.Connections {
			r.segment(r.project(hand.Points[c[0]]), r.project(hand.Points[c[1]]))
		}
	})

	for i, p := range hand.Points {
		c := handColor
		if i == detector.ThumbTip || i == detector.IndexTip {
			c = TipColor
		}
		r.fill(dst, c, func() {
			pt := r.project(p)
			r.ellipse(pt, r.pointRadius, r.pointRadius, false)
		})
	}
}

// fill rasterizes the paths added by build in a single color.
func (r *Renderer) fill(dst draw.Image, c color.NRGBA, build func()) {
	r.rast.Reset(r.width, r.height)
	build()
	r.rast.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

func (r *Renderer) segment(a, b point) {
	dx, dy := b.x-a.x, b.y-a.y
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	nx, ny := -dy/length*r.lineWidth/2, dx/length*r.lineWidth/2

	r.rast.MoveTo(a.x+nx, a.y+ny)
	r.rast.LineTo(b.x+nx, b.y+ny)
	r.rast.LineTo(b.x-nx, b.y-ny)
	r.rast.LineTo(a.x-nx, a.y-ny)
	r.rast.ClosePath()
}

// ellipse adds a closed polygonal ellipse. Reversed winding cuts a hole
// out of an enclosing path.
func (r *Renderer) ellipse(c point, rx, ry float32, reverse bool) {
	for i := 0; i <= circleSegments; i++ {
		theta := 2 * math.Pi * float64(i) / circleSegments
		if reverse {
			theta = -theta
		}
		x := c.x + rx*float32(math.Cos(theta))
		y := c.y + ry*float32(math.Sin(theta))
		if i == 0 {
			r.rast.MoveTo(x, y)
			continue
		}
		r.rast.LineTo(x, y)
	}
	r.rast.ClosePath()
}

type point struct{ x, y float32 }

func (r *Renderer) project(p detector.Point3D) point {
	return point{x: float32(p.X * float64(r.width)), y: float32(p.Y * float64(r.height))}
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(hi, v))
}

package eyeson

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

type point struct {
	x, y float32
}

// AddRect fills a rectangle with corners rounded by radius, blending
// semi-transparent colors.
func (l *Layer) AddRect(x, y, width, height, radius int, c color.Color) *Layer {
	if width <= 0 || height <= 0 {
		return l
	}

	return l.paint(func(dst *image.NRGBA) {
		fillRect(dst, image.Rect(x, y, x+width, y+height), radius, c)
	})
}

// AddRectOutline strokes a rectangle. The stroke is centered on the edge.
func (l *Layer) AddRectOutline(x, y, width, height, lineWidth, radius int, c color.Color) *Layer {
	if width <= 0 || height <= 0 {
		return l
	}

	return l.paint(func(dst *image.NRGBA) {
		strokeRect(dst, image.Rect(x, y, x+width, y+height), lineWidth, radius, c)
	})
}

// AddCircle fills a circle centered at x,y.
func (l *Layer) AddCircle(x, y, radius int, c color.Color) *Layer {
	if radius <= 0 {
		return l
	}

	return l.paint(func(dst *image.NRGBA) {
		mask := newMask(dst)
		fillPaths(mask, circle(float32(x), float32(y), float32(radius)))
		paintMask(dst, mask, c)
	})
}

func (l *Layer) AddCircleOutline(x, y, radius, lineWidth int, c color.Color) *Layer {
	if radius <= 0 {
		return l
	}

	half := float32(strokeWidth(lineWidth)) / 2
	cx, cy, r := float32(x), float32(y), float32(radius)

	return l.paint(func(dst *image.NRGBA) {
		paths := [][]point{circle(cx, cy, r+half)}
		if r > half {
			paths = append(paths, reversed(circle(cx, cy, r-half)))
		}

		mask := newMask(dst)
		fillPaths(mask, paths...)
		paintMask(dst, mask, c)
	})
}

func (l *Layer) AddLine(x1, y1, x2, y2, lineWidth int, c color.Color) *Layer {
	return l.paint(func(dst *image.NRGBA) {
		mask := newMask(dst)
		fillPaths(mask, segment(
			point{float32(x1), float32(y1)},
			point{float32(x2), float32(y2)},
			float32(strokeWidth(lineWidth)),
		))
		paintMask(dst, mask, c)
	})
}

// AddPolygon fills the polygon through points, which needs at least three.
func (l *Layer) AddPolygon(c color.Color, points ...image.Point) *Layer {
	if len(points) < 3 {
		return l.fail(&ValidationError{Field: "points", Message: "polygon needs at least 3 points"})
	}

	return l.paint(func(dst *image.NRGBA) {
		mask := newMask(dst)
		fillPaths(mask, toPath(points))
		paintMask(dst, mask, c)
	})
}

// AddPolygonOutline strokes the closed polygon through points with round
// joins.
func (l *Layer) AddPolygonOutline(c color.Color, lineWidth int, points ...image.Point) *Layer {
	if len(points) < 3 {
		return l.fail(&ValidationError{Field: "points", Message: "polygon needs at least 3 points"})
	}

	width := float32(strokeWidth(lineWidth))
	path := toPath(points)

	return l.paint(func(dst *image.NRGBA) {
		mask := newMask(dst)
		for i, p := range path {
			next := path[(i+1)%len(path)]
			fillPaths(mask, segment(p, next, width))
			if width > 1 {
				fillPaths(mask, circle(p.x, p.y, width/2))
			}
		}
		paintMask(dst, mask, c)
	})
}

func strokeWidth(lineWidth int) int {
	if lineWidth <= 0 {
		return 1
	}
	return lineWidth
}

func fillRect(dst *image.NRGBA, r image.Rectangle, radius int, c color.Color) {
	mask := newMask(dst)
	fillPaths(mask, roundedRect(
		float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()), float32(radius),
	))
	paintMask(dst, mask, c)
}

func strokeRect(dst *image.NRGBA, r image.Rectangle, lineWidth, radius int, c color.Color) {
	half := float32(strokeWidth(lineWidth)) / 2
	x, y := float32(r.Min.X), float32(r.Min.Y)
	w, h, rad := float32(r.Dx()), float32(r.Dy()), float32(radius)

	paths := [][]point{roundedRect(x-half, y-half, w+2*half, h+2*half, rad+half)}
	if w > 2*half && h > 2*half {
		paths = append(paths, reversed(roundedRect(x+half, y+half, w-2*half, h-2*half, max(rad-half, 0))))
	}

	mask := newMask(dst)
	fillPaths(mask, paths...)
	paintMask(dst, mask, c)
}

func newMask(dst *image.NRGBA) *image.Alpha {
	return image.NewAlpha(dst.Bounds())
}

// fillPaths rasterizes closed paths into mask in one pass, so paths of
// opposite direction cut holes. Separate calls add up.
func fillPaths(mask *image.Alpha, paths ...[]point) {
	b := mask.Bounds()

	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over

	for _, path := range paths {
		if len(path) < 3 {
			continue
		}

		z.MoveTo(path[0].x, path[0].y)
		for _, p := range path[1:] {
			z.LineTo(p.x, p.y)
		}
		z.ClosePath()
	}

	z.Draw(mask, b, image.Opaque, image.Point{})
}

func paintMask(dst *image.NRGBA, mask *image.Alpha, c color.Color) {
	draw.DrawMask(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, mask, mask.Bounds().Min, draw.Over)
}

func toPath(points []image.Point) []point {
	path := make([]point, len(points))
	for i, p := range points {
		path[i] = point{float32(p.X), float32(p.Y)}
	}
	return path
}

func reversed(path []point) []point {
	out := make([]point, len(path))
	for i, p := range path {
		out[len(path)-1-i] = p
	}
	return out
}

// arc appends points on the circle around cx,cy from one angle to another,
// in degrees, clockwise on screen.
func arc(path []point, cx, cy, r, from, to float32) []point {
	steps := int(math.Ceil(float64(r) * float64(to-from) / 45))
	steps = min(max(steps, 4), 90)

	for i := 0; i <= steps; i++ {
		a := float64(from+(to-from)*float32(i)/float32(steps)) * math.Pi / 180
		path = append(path, point{
			x: cx + r*float32(math.Cos(a)),
			y: cy + r*float32(math.Sin(a)),
		})
	}
	return path
}

func circle(cx, cy, r float32) []point {
	path := arc(nil, cx, cy, r, 0, 360)
	return path[:len(path)-1]
}

func roundedRect(x, y, w, h, r float32) []point {
	r = min(r, w/2, h/2)
	if r <= 0 {
		return []point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}
	}

	path := arc(nil, x+w-r, y+r, r, -90, 0)
	path = arc(path, x+w-r, y+h-r, r, 0, 90)
	path = arc(path, x+r, y+h-r, r, 90, 180)
	return arc(path, x+r, y+r, r, 180, 270)
}

// segment is the quad covering a line of the given width from a to b.
func segment(a, b point, width float32) []point {
	dx, dy := b.x-a.x, b.y-a.y
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return nil
	}

	nx, ny := -dy/length*width/2, dx/length*width/2

	return []point{
		{a.x + nx, a.y + ny},
		{b.x + nx, b.y + ny},
		{b.x - nx, b.y - ny},
		{a.x - nx, a.y - ny},
	}
}

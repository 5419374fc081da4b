package eyeson

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const defaultFontSize = 16

var goRegular = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

// Font selects the typeface and pixel size of text.
type Font struct {
	// Face defaults to Go Regular.
	Face *opentype.Font
	// Size defaults to 16.
	Size float64
}

// LoadFont reads a TrueType or OpenType font file for use in Font.Face.
func LoadFont(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return f, nil
}

func (f Font) face() (font.Face, error) {
	otf := f.Face
	if otf == nil {
		var err error
		if otf, err = goRegular(); err != nil {
			return nil, fmt.Errorf("load default font: %w", err)
		}
	}

	size := f.Size
	if size <= 0 {
		size = defaultFontSize
	}

	face, err := opentype.NewFace(otf, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	return face, nil
}

type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
	AlignStart  TextAlign = "start"
	AlignEnd    TextAlign = "end"
)

// BoxOrigin names the point of a text box that lands on the given x,y.
type BoxOrigin string

const (
	OriginTopLeft      BoxOrigin = "top left"
	OriginTopCenter    BoxOrigin = "top center"
	OriginTopRight     BoxOrigin = "top right"
	OriginCenterLeft   BoxOrigin = "center left"
	OriginCenter       BoxOrigin = "center"
	OriginCenterRight  BoxOrigin = "center right"
	OriginBottomLeft   BoxOrigin = "bottom left"
	OriginBottomCenter BoxOrigin = "bottom center"
	OriginBottomRight  BoxOrigin = "bottom right"
)

func (o BoxOrigin) place(x, y, width, height int) image.Rectangle {
	vertical, horizontal := "top", "left"
	switch parts := strings.Fields(string(o)); len(parts) {
	case 1:
		vertical, horizontal = parts[0], parts[0]
	case 2:
		vertical, horizontal = parts[0], parts[1]
	}

	switch vertical {
	case "center":
		y -= height / 2
	case "bottom":
		y -= height
	}
	switch horizontal {
	case "center":
		x -= width / 2
	case "right":
		x -= width
	}

	return image.Rect(x, y, x+width, y+height)
}

// Padding is top, right, bottom and left, in pixels.
type Padding [4]int

// Pad builds a Padding from one to four values in CSS order: all sides;
// vertical and horizontal; top, horizontal and bottom; or each side.
func Pad(values ...int) Padding {
	switch len(values) {
	case 1:
		return Padding{values[0], values[0], values[0], values[0]}
	case 2:
		return Padding{values[0], values[1], values[0], values[1]}
	case 3:
		return Padding{values[0], values[1], values[2], values[1]}
	case 4:
		return Padding{values[0], values[1], values[2], values[3]}
	}
	return Padding{}
}

func (p Padding) horizontal() int { return p[1] + p[3] }
func (p Padding) vertical() int   { return p[0] + p[2] }

// MeasureText returns the width and height of text set on one line.
func MeasureText(text string, f Font) (image.Point, error) {
	face, err := f.face()
	if err != nil {
		return image.Point{}, err
	}
	defer face.Close()

	return image.Pt(font.MeasureString(face, text).Ceil(), lineHeight(face)), nil
}

// AddText draws a single line with its top-left corner at x,y. Text wider
// than a positive maxWidth is squeezed horizontally to fit.
func (l *Layer) AddText(text string, f Font, c color.Color, x, y, maxWidth int) *Layer {
	face, err := f.face()
	if err != nil {
		return l.fail(err)
	}
	defer face.Close()

	return l.paint(func(dst *image.NRGBA) {
		drawLine(dst, face, text, c, x, y, maxWidth)
	})
}

// AddMultilineText word-wraps text into the width x height box at x,y.
// Lines that would overflow the box are dropped. lineHeight is the distance
// between baselines; zero uses the font's own.
func (l *Layer) AddMultilineText(text string, f Font, c color.Color, x, y, width, height, lineHeight int, align TextAlign) *Layer {
	face, err := f.face()
	if err != nil {
		return l.fail(err)
	}
	defer face.Close()

	return l.paint(func(dst *image.NRGBA) {
		drawParagraph(dst, face, text, c, image.Rect(x, y, x+width, y+height), lineHeight, align)
	})
}

// AddTextBox draws one line of text on a filled box. The box hugs the text
// plus padding, capped at maxWidth, and origin picks which of its points
// lands on x,y.
func (l *Layer) AddTextBox(text string, f Font, fontColor color.Color, x, y int, origin BoxOrigin, padding Padding, maxWidth, radius int, boxColor color.Color) *Layer {
	return l.textBox(text, f, fontColor, x, y, origin, padding, maxWidth, func(dst *image.NRGBA, r image.Rectangle) {
		fillRect(dst, r, radius, boxColor)
	})
}

func (l *Layer) AddTextBoxOutline(text string, f Font, fontColor color.Color, x, y int, origin BoxOrigin, padding Padding, maxWidth, radius, lineWidth int, boxColor color.Color) *Layer {
	return l.textBox(text, f, fontColor, x, y, origin, padding, maxWidth, func(dst *image.NRGBA, r image.Rectangle) {
		strokeRect(dst, r, lineWidth, radius, boxColor)
	})
}

// AddMultilineTextBox fills the width x height box at x,y and wraps text
// inside it, inset by padding.
func (l *Layer) AddMultilineTextBox(text string, f Font, fontColor color.Color, x, y, width, height int, padding Padding, lineHeight, radius int, boxColor color.Color, align TextAlign) *Layer {
	return l.multilineTextBox(text, f, fontColor, image.Rect(x, y, x+width, y+height), padding, lineHeight, align, func(dst *image.NRGBA, r image.Rectangle) {
		fillRect(dst, r, radius, boxColor)
	})
}

func (l *Layer) AddMultilineTextBoxOutline(text string, f Font, fontColor color.Color, x, y, width, height int, padding Padding, lineHeight, radius, lineWidth int, boxColor color.Color, align TextAlign) *Layer {
	return l.multilineTextBox(text, f, fontColor, image.Rect(x, y, x+width, y+height), padding, lineHeight, align, func(dst *image.NRGBA, r image.Rectangle) {
		strokeRect(dst, r, lineWidth, radius, boxColor)
	})
}

func (l *Layer) textBox(text string, f Font, c color.Color, x, y int, origin BoxOrigin, padding Padding, maxWidth int, box func(*image.NRGBA, image.Rectangle)) *Layer {
	face, err := f.face()
	if err != nil {
		return l.fail(err)
	}
	defer face.Close()

	textWidth := font.MeasureString(face, text).Ceil()
	if maxWidth > 0 && textWidth+padding.horizontal() > maxWidth {
		textWidth = max(maxWidth-padding.horizontal(), 1)
	}

	r := origin.place(x, y, textWidth+padding.horizontal(), lineHeight(face)+padding.vertical())

	return l.paint(func(dst *image.NRGBA) {
		box(dst, r)
		drawLine(dst, face, text, c, r.Min.X+padding[3], r.Min.Y+padding[0], textWidth)
	})
}

func (l *Layer) multilineTextBox(text string, f Font, c color.Color, r image.Rectangle, padding Padding, advance int, align TextAlign, box func(*image.NRGBA, image.Rectangle)) *Layer {
	face, err := f.face()
	if err != nil {
		return l.fail(err)
	}
	defer face.Close()

	inner := image.Rect(r.Min.X+padding[3], r.Min.Y+padding[0], r.Max.X-padding[1], r.Max.Y-padding[2])

	return l.paint(func(dst *image.NRGBA) {
		box(dst, r)
		drawParagraph(dst, face, text, c, inner, advance, align)
	})
}

func lineHeight(face font.Face) int {
	m := face.Metrics()
	return (m.Ascent + m.Descent).Ceil()
}

func drawLine(dst *image.NRGBA, face font.Face, text string, c color.Color, x, y, maxWidth int) {
	ascent := face.Metrics().Ascent
	width := font.MeasureString(face, text).Ceil()

	if maxWidth <= 0 || width <= maxWidth {
		d := font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face, Dot: fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y) + ascent}}
		d.DrawString(text)
		return
	}

	height := lineHeight(face)
	line := image.NewNRGBA(image.Rect(0, 0, width, height))
	d := font.Drawer{Dst: line, Src: image.NewUniform(c), Face: face, Dot: fixed.Point26_6{Y: ascent}}
	d.DrawString(text)

	squeezed := imaging.Resize(line, maxWidth, height, imaging.Lanczos)
	draw.Draw(dst, image.Rect(x, y, x+maxWidth, y+height), squeezed, image.Point{}, draw.Over)
}

func drawParagraph(dst *image.NRGBA, face font.Face, text string, c color.Color, r image.Rectangle, advance int, align TextAlign) {
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return
	}
	if advance <= 0 {
		advance = face.Metrics().Height.Ceil()
	}
	height := lineHeight(face)

	for i, line := range wrapText(face, text, r.Dx()) {
		top := r.Min.Y + i*advance
		if top+height > r.Max.Y {
			return
		}

		width := min(font.MeasureString(face, line).Ceil(), r.Dx())
		x := r.Min.X
		switch align {
		case AlignCenter:
			x += (r.Dx() - width) / 2
		case AlignRight, AlignEnd:
			x += r.Dx() - width
		}

		drawLine(dst, face, line, c, x, top, r.Dx())
	}
}

// wrapText breaks text at newlines and then greedily at spaces so every
// line fits width. A single word wider than width keeps a line of its own.
func wrapText(face font.Face, text string, width int) []string {
	var lines []string

	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		line := words[0]
		for _, word := range words[1:] {
			if next := line + " " + word; font.MeasureString(face, next).Ceil() <= width {
				line = next
				continue
			}
			lines = append(lines, line)
			line = word
		}
		lines = append(lines, line)
	}

	return lines
}

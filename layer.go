package eyeson

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

// ZIndex positions a layer in front of or behind the participants.
type ZIndex int

const (
	ZIndexForeground ZIndex = 1
	ZIndexBackground ZIndex = -1
)

type ImageType string

const (
	ImagePNG ImageType = "png"
	ImageJPG ImageType = "jpg"
)

// BufferProducer renders a layer image on demand. *Layer implements it.
type BufferProducer interface {
	CreateBuffer() ([]byte, error)
}

// LayerSource is the image passed to Room.SendLayer: either raw encoded
// bytes or a BufferProducer, which is called exactly once per upload.
type LayerSource struct {
	raw      []byte
	producer BufferProducer
}

func LayerBytes(data []byte) LayerSource {
	return LayerSource{raw: data}
}

func LayerFrom(p BufferProducer) LayerSource {
	return LayerSource{producer: p}
}

func (s LayerSource) bytes() ([]byte, error) {
	if s.producer != nil {
		data, err := s.producer.CreateBuffer()
		if err != nil {
			return nil, fmt.Errorf("create layer buffer: %w", err)
		}
		return data, nil
	}

	if len(s.raw) == 0 {
		return nil, &ValidationError{Field: "buffer", Message: "layer image is required"}
	}
	return s.raw, nil
}

const (
	layerWidth          = 1280
	layerHeightWide     = 720
	layerHeightStandard = 960
)

type LayerOptions struct {
	// Widescreen selects 16:9 (1280x720, the default) over 4:3 (1280x960).
	Widescreen *bool
}

// Layer is a transparent canvas the size of the meeting video. Shapes, text
// and images are composited in the order they are added. Drawing methods
// chain; the first failure is kept and reported by Err and CreateBuffer.
type Layer struct {
	canvas *image.NRGBA
	shadow *Shadow
	err    error
}

func NewLayer(opts LayerOptions) *Layer {
	height := layerHeightWide
	if opts.Widescreen != nil && !*opts.Widescreen {
		height = layerHeightStandard
	}

	return &Layer{canvas: imaging.New(layerWidth, height, color.Transparent)}
}

func (l *Layer) Bounds() image.Rectangle {
	return l.canvas.Bounds()
}

// Image returns the current canvas.
func (l *Layer) Image() image.Image {
	return l.canvas
}

// Err returns the first error hit by a drawing method.
func (l *Layer) Err() error {
	return l.err
}

func (l *Layer) fail(err error) *Layer {
	if l.err == nil {
		l.err = err
	}
	return l
}

// Shadow is cast by everything drawn between StartShadow and EndShadow.
type Shadow struct {
	Blur             float64
	OffsetX, OffsetY int
	// Color defaults to half transparent black.
	Color color.Color
}

func (l *Layer) StartShadow(s Shadow) *Layer {
	l.shadow = &s
	return l
}

func (l *Layer) EndShadow() *Layer {
	l.shadow = nil
	return l
}

// paint runs fn on the canvas, or on a scratch canvas whose shadow is
// composited first when a shadow is active.
func (l *Layer) paint(fn func(dst *image.NRGBA)) *Layer {
	if l.shadow == nil {
		fn(l.canvas)
		return l
	}

	shape := image.NewNRGBA(l.canvas.Bounds())
	fn(shape)

	offset := image.Pt(l.shadow.OffsetX, l.shadow.OffsetY)
	l.canvas = imaging.Overlay(l.canvas, l.shadow.cast(shape), offset, 1.0)
	l.canvas = imaging.Overlay(l.canvas, shape, image.Point{}, 1.0)
	return l
}

func (s Shadow) cast(shape *image.NRGBA) *image.NRGBA {
	tint := color.NRGBA{A: 128}
	if s.Color != nil {
		tint = color.NRGBAModel.Convert(s.Color).(color.NRGBA)
	}

	out := image.NewNRGBA(shape.Bounds())
	for i := 3; i < len(shape.Pix); i += 4 {
		out.Pix[i-3], out.Pix[i-2], out.Pix[i-1] = tint.R, tint.G, tint.B
		out.Pix[i] = uint8(uint32(shape.Pix[i]) * uint32(tint.A) / 255)
	}

	if s.Blur > 0 {
		return imaging.Blur(out, s.Blur/2)
	}
	return out
}

// AddImage draws img with its top-left corner at x,y. When width or height
// is positive the image is resized first; a zero side keeps the aspect
// ratio.
func (l *Layer) AddImage(img image.Image, x, y, width, height int) *Layer {
	if width > 0 || height > 0 {
		img = imaging.Resize(img, width, height, imaging.Lanczos)
	}

	return l.paint(func(dst *image.NRGBA) {
		b := img.Bounds()
		draw.Draw(dst, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, draw.Over)
	})
}

func (l *Layer) AddImageFile(path string, x, y, width, height int) error {
	img, err := imaging.Open(path)
	if err != nil {
		return fmt.Errorf("open layer image: %w", err)
	}

	l.AddImage(img, x, y, width, height)
	return nil
}

// CreateBuffer encodes the canvas as PNG.
func (l *Layer) CreateBuffer() ([]byte, error) {
	if l.err != nil {
		return nil, l.err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, l.canvas, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png layer: %w", err)
	}
	return buf.Bytes(), nil
}

// CreateJPEG encodes the canvas as JPEG. JPEG has no alpha channel, so
// transparent areas turn black; only useful for background layers.
func (l *Layer) CreateJPEG(quality int) ([]byte, error) {
	if l.err != nil {
		return nil, l.err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, l.canvas, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg layer: %w", err)
	}
	return buf.Bytes(), nil
}

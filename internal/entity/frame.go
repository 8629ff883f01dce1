package entity

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// MaxDimension bounds the height and width a frame record may claim.
const MaxDimension = 1 << 15

var (
	ErrInvalidShape  = errors.New("invalid frame shape")
	ErrShapeMismatch = errors.New("pixel buffer does not match shape")
)

// Shape is the (height, width, channels) layout of a raw pixel buffer.
type Shape struct {
	Height   int `json:"height"`
	Width    int `json:"width"`
	Channels int `json:"channels"`
}

// String renders the shape as a tuple literal, e.g. "(480, 640, 3)".
func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.Height, s.Width, s.Channels)
}

func (s Shape) Size() int {
	return s.Height * s.Width * s.Channels
}

func (s Shape) Validate() error {
	if s.Height <= 0 || s.Width <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidShape, s)
	}
	switch s.Channels {
	case 1, 3, 4:
	default:
		return fmt.Errorf("%w: unsupported channel count %d", ErrInvalidShape, s.Channels)
	}
	if s.Height > MaxDimension || s.Width > MaxDimension {
		return fmt.Errorf("%w: %s exceeds %d pixels per side", ErrInvalidShape, s, MaxDimension)
	}
	// The RGBA buffer is built at 4 bytes per pixel whatever the channel count.
	if s.Height > math.MaxInt/s.Width/4 {
		return fmt.Errorf("%w: %s is too large", ErrInvalidShape, s)
	}
	return nil
}

// ParseShape reads a tuple literal produced by Shape.String.
func ParseShape(raw string) (Shape, error) {
	trimmed := strings.Trim(strings.TrimSpace(raw), "()")
	parts := strings.Split(trimmed, ",")
	if len(parts) != 3 {
		return Shape{}, fmt.Errorf("%w: %q", ErrInvalidShape, raw)
	}

	dims := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Shape{}, fmt.Errorf("%w: %q", ErrInvalidShape, raw)
		}
		dims[i] = n
	}

	shape := Shape{Height: dims[0], Width: dims[1], Channels: dims[2]}
	if err := shape.Validate(); err != nil {
		return Shape{}, err
	}
	return shape, nil
}

// FrameRecord is one captured sample on the ingest stream.
type FrameRecord struct {
	Camera string
	Pixels []byte
	Shape  Shape
}

// DecodedFrame is a FrameRecord after the pixel buffer has been turned into an
// image the detection engine can consume.
type DecodedFrame struct {
	Camera string
	Shape  Shape
	Image  *image.RGBA
}

// PixelsToImage builds an RGBA image from an interleaved pixel buffer.
func PixelsToImage(pixels []byte, shape Shape) (*image.RGBA, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(pixels) != shape.Size() {
		return nil, fmt.Errorf("%w: got %d bytes for %s", ErrShapeMismatch, len(pixels), shape)
	}

	img := image.NewRGBA(image.Rect(0, 0, shape.Width, shape.Height))
	if shape.Channels == 4 {
		copy(img.Pix, pixels)
		return img, nil
	}

	for i, j := 0, 0; i < len(pixels); i, j = i+shape.Channels, j+4 {
		switch shape.Channels {
		case 3:
			img.Pix[j], img.Pix[j+1], img.Pix[j+2] = pixels[i], pixels[i+1], pixels[i+2]
		case 1:
			img.Pix[j], img.Pix[j+1], img.Pix[j+2] = pixels[i], pixels[i], pixels[i]
		}
		img.Pix[j+3] = 0xff
	}
	return img, nil
}

// ImageToPixels flattens img back into an interleaved buffer with the given
// channel count.
func ImageToPixels(img image.Image, channels int) []byte {
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*channels)

	if rgba, ok := img.(*image.RGBA); ok && channels == 4 && rgba.Stride == 4*b.Dx() {
		return append(out, rgba.Pix...)
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			switch channels {
			case 1:
				out = append(out, color.GrayModel.Convert(c).(color.Gray).Y)
			case 3:
				out = append(out, c.R, c.G, c.B)
			default:
				out = append(out, c.R, c.G, c.B, c.A)
			}
		}
	}
	return out
}

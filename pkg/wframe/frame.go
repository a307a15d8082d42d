package wframe

// In-memory linear-light frames. The calibration core never touches
// files or camera containers; whatever decoded the sequence hands us
// hdr.Image buffers (or LDR images we promote to float).

import(
	"image"
	"image/color"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/wallcal/wallcal/pkg/wmath"
)

// A Frame is one decoded image in the capture sequence.
type Frame struct {
	Num   int  // position in the sequence
	Image hdr.Image
}

type Sequence struct {
	Frames []Frame
}

func (s Sequence)Len() int { return len(s.Frames) }

// MeanRGB averages the pixels of frame i inside the ROI.
func (f Frame)MeanRGB(roi image.Rectangle) wmath.Vec3 {
	roi = roi.Intersect(f.Image.Bounds())

	sum := wmath.Vec3{}
	n := 0
	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		for x := roi.Min.X; x < roi.Max.X; x++ {
			r, g, b, _ := f.Image.HDRAt(x, y).HDRRGBA()
			sum[0] += r
			sum[1] += g
			sum[2] += b
			n++
		}
	}
	if n == 0 {
		return wmath.Vec3{}
	}
	return sum.Scale(1.0 / float64(n))
}

// A FloatImage is a plain grid of float RGB triples implementing
// hdr.Image, for synthetic frames and promoted LDR sources.
type FloatImage struct {
	Rect image.Rectangle
	Pix  []float64 // 3 floats per pixel, row major
}

func NewFloatImage(r image.Rectangle) *FloatImage {
	return &FloatImage{
		Rect: r,
		Pix:  make([]float64, 3*r.Dx()*r.Dy()),
	}
}

// NewFlatImage is a w x h frame filled with a single color; most
// synthetic calibration patches are exactly this.
func NewFlatImage(w, h int, rgb wmath.Vec3) *FloatImage {
	img := NewFloatImage(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGB(x, y, rgb)
		}
	}
	return img
}

func (p *FloatImage)pixOffset(x, y int) int {
	return 3 * ((y-p.Rect.Min.Y)*p.Rect.Dx() + (x - p.Rect.Min.X))
}

func (p *FloatImage)SetRGB(x, y int, rgb wmath.Vec3) {
	i := p.pixOffset(x, y)
	p.Pix[i], p.Pix[i+1], p.Pix[i+2] = rgb[0], rgb[1], rgb[2]
}

// Implement golang's image.Image interface
func (p *FloatImage)ColorModel() color.Model { return hdrcolor.RGBModel }
func (p *FloatImage)Bounds() image.Rectangle { return p.Rect }
func (p *FloatImage)At(x, y int) color.Color { return p.HDRAt(x, y) }

// Implement hdr.Image (a superset of image.Image)
func (p *FloatImage)Size() int { return p.Rect.Dx() * p.Rect.Dy() }
func (p *FloatImage)HDRAt(x, y int) hdrcolor.Color {
	if !image.Pt(x, y).In(p.Rect) {
		return hdrcolor.RGB{}
	}
	i := p.pixOffset(x, y)
	return hdrcolor.RGB{R: p.Pix[i], G: p.Pix[i+1], B: p.Pix[i+2]}
}

// ldrImage promotes an 8/16-bit image to the hdr interface, mapping
// channel values [0, 0xFFFF] to [0.0, 1.0].
type ldrImage struct {
	img image.Image
}

func (p ldrImage)ColorModel() color.Model { return hdrcolor.RGBModel }
func (p ldrImage)Bounds() image.Rectangle { return p.img.Bounds() }
func (p ldrImage)At(x, y int) color.Color { return p.HDRAt(x, y) }
func (p ldrImage)Size() int               { return p.Bounds().Dx() * p.Bounds().Dy() }

func (p ldrImage)HDRAt(x, y int) hdrcolor.Color {
	r, g, b, _ := p.img.At(x, y).RGBA()
	return hdrcolor.RGB{
		R: float64(r) / float64(0xFFFF),
		G: float64(g) / float64(0xFFFF),
		B: float64(b) / float64(0xFFFF),
	}
}

// AsHDR wraps any image.Image as an hdr.Image, passing through
// images that already are one.
func AsHDR(img image.Image) hdr.Image {
	if h, ok := img.(hdr.Image); ok {
		return h
	}
	return ldrImage{img: img}
}

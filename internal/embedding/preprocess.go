package embedding

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// CropFace cuts the face region out of img. The margin is marginRatio *
// min(width, height) of the detected box as reported, even when the box
// reaches past the frame; the grown box is then clamped to the image.
// The result is a new image anchored at (0,0).
func CropFace(img image.Image, box image.Rectangle, marginRatio float64) (*image.RGBA, bool) {
	bounds := img.Bounds()
	box = box.Canon()
	r := box.Intersect(bounds)
	if r.Empty() {
		return nil, false
	}

	margin := int(float64(min(box.Dx(), box.Dy())) * marginRatio)
	r = image.Rect(r.Min.X-margin, r.Min.Y-margin, r.Max.X+margin, r.Max.Y+margin).Intersect(bounds)

	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst, true
}

// Rotate turns src clockwise by degrees and returns an image large enough to
// hold the whole rotated source. Quarter turns are exact.
func Rotate(src *image.RGBA, degrees int) *image.RGBA {
	degrees %= 360
	if degrees < 0 {
		degrees += 360
	}
	if degrees == 0 {
		return src
	}

	var sin, cos float64
	switch degrees {
	case 90:
		sin, cos = 1, 0
	case 180:
		sin, cos = 0, -1
	case 270:
		sin, cos = -1, 0
	default:
		rad := float64(degrees) * math.Pi / 180
		sin, cos = math.Sin(rad), math.Cos(rad)
	}

	w, h := float64(src.Bounds().Dx()), float64(src.Bounds().Dy())

	// Image y grows downwards, so this matrix turns clockwise on screen
	xs := []float64{0, w * cos, -h * sin, w*cos - h*sin}
	ys := []float64{0, w * sin, h * cos, w*sin + h*cos}
	minX, maxX := span(xs)
	minY, maxY := span(ys)

	dw := int(math.Round(maxX - minX))
	dh := int(math.Round(maxY - minY))
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))

	s2d := f64.Aff3{
		cos, -sin, -minX,
		sin, cos, -minY,
	}
	draw.NearestNeighbor.Transform(dst, s2d, src, src.Bounds(), draw.Src, nil)
	return dst
}

func span(vs []float64) (lo, hi float64) {
	lo, hi = vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// Resize scales src to size x size with nearest-neighbour sampling, ignoring aspect ratio
func Resize(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// Tensor flattens img into HWC RGB floats scaled to [-1, 1]
func Tensor(img *image.RGBA) []float32 {
	b := img.Bounds()
	out := make([]float32, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			out = append(out,
				float32(c.R)/127.5-1,
				float32(c.G)/127.5-1,
				float32(c.B)/127.5-1,
			)
		}
	}
	return out
}

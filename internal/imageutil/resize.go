// Package imageutil normalizes generated portrait images: the upstream API
// returns large PNGs and we store a fixed 256x256 rendition.
package imageutil

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	"image/png"
	"math"
)

// Resize scales src to dstW x dstH using bilinear interpolation and returns
// the result as an *image.NRGBA.
func Resize(src image.Image, dstW, dstH int) (*image.NRGBA, error) {
	if dstW <= 0 || dstH <= 0 {
		return nil, errors.New("invalid target size")
	}
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return nil, errors.New("source image has zero size")
	}

	// Normalize the source to NRGBA so channels sit in a predictable layout.
	in := image.NewNRGBA(image.Rect(0, 0, srcW, srcH))
	draw.Draw(in, in.Bounds(), src, bounds.Min, draw.Src)

	out := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	if srcW == dstW && srcH == dstH {
		copy(out.Pix, in.Pix)
		return out, nil
	}

	sx := float64(srcW) / float64(dstW)
	sy := float64(srcH) / float64(dstH)
	for y := 0; y < dstH; y++ {
		fy := (float64(y)+0.5)*sy - 0.5
		y0 := int(math.Floor(fy))
		wy := fy - float64(y0)
		y0, y1 := clamp(y0, srcH), clamp(y0+1, srcH)
		for x := 0; x < dstW; x++ {
			fx := (float64(x)+0.5)*sx - 0.5
			x0 := int(math.Floor(fx))
			wx := fx - float64(x0)
			x0, x1 := clamp(x0, srcW), clamp(x0+1, srcW)
			o := out.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				p00 := float64(in.Pix[in.PixOffset(x0, y0)+c])
				p10 := float64(in.Pix[in.PixOffset(x1, y0)+c])
				p01 := float64(in.Pix[in.PixOffset(x0, y1)+c])
				p11 := float64(in.Pix[in.PixOffset(x1, y1)+c])
				top := p00 + (p10-p00)*wx
				bottom := p01 + (p11-p01)*wx
				out.Pix[o+c] = uint8(math.Round(top + (bottom-top)*wy))
			}
		}
	}
	return out, nil
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v >= max {
		return max - 1
	}
	return v
}

// ResizePNGBytes decodes the provided image bytes, resizes to w x h and
// re-encodes as PNG.
func ResizePNGBytes(data []byte, w, h int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	resized, err := Resize(img, w, h)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

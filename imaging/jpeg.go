package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// Encoded is the JPEG form of a frame as sent to the AI service. Width and
// Height are the dimensions of the image actually encoded; the service's
// pixel coordinates refer to these, not to the original frame.
type Encoded struct {
	Base64 string
	Width  int
	Height int
}

// EncodeJPEG downscales the frame proportionally when it is wider than
// maxWidth, encodes it as JPEG at the given quality and returns the
// base64 body plus the encoded dimensions.
func EncodeJPEG(f *Frame, maxWidth, quality int) (Encoded, error) {
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return Encoded{}, fmt.Errorf("cannot encode empty frame")
	}
	if len(f.Pix) < f.Width*f.Height*3 {
		return Encoded{}, fmt.Errorf("frame pixel buffer too small: %d bytes for %dx%d", len(f.Pix), f.Width, f.Height)
	}

	img := toRGBA(f)

	if maxWidth > 0 && f.Width > maxWidth {
		scaledH := f.Height * maxWidth / f.Width
		if scaledH < 1 {
			scaledH = 1
		}
		scaled := image.NewRGBA(image.Rect(0, 0, maxWidth, scaledH))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return Encoded{}, fmt.Errorf("jpeg encode: %w", err)
	}

	b := img.Bounds()
	return Encoded{
		Base64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

func toRGBA(f *Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		srcRow := f.Pix[y*f.Width*3:]
		dstRow := img.Pix[y*img.Stride:]
		for x := 0; x < f.Width; x++ {
			s := x * 3
			d := x * 4
			dstRow[d+0] = srcRow[s+2] // R
			dstRow[d+1] = srcRow[s+1] // G
			dstRow[d+2] = srcRow[s+0] // B
			dstRow[d+3] = 0xff
		}
	}
	return img
}

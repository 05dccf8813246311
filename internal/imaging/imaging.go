package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"

	"golang.org/x/image/draw"
)

// DefaultMaxDimension is the maximum width or height for normalised images.
const DefaultMaxDimension = 1024

// DefaultJPEGQuality is the compression quality for normalised output.
const DefaultJPEGQuality = 85

// AllowedMIME lists the accepted input MIME types for normalisation.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// DetectMIME sniffs the content type of stored image bytes.
func DetectMIME(data []byte) string {
	return http.DetectContentType(data)
}

// Normalizer validates uploads by sniffing bytes, downscales anything larger
// than MaxDimension and re-encodes as JPEG.
type Normalizer struct {
	MaxDimension int
	Quality      int
}

// NewNormalizer returns a Normalizer with the default limits.
func NewNormalizer() *Normalizer {
	return &Normalizer{MaxDimension: DefaultMaxDimension, Quality: DefaultJPEGQuality}
}

// Normalize returns the re-encoded JPEG for data.
func (n *Normalizer) Normalize(data []byte) ([]byte, error) {
	// Sniff actual MIME type from bytes (not trusting client headers).
	detected := DetectMIME(data)
	if !AllowedMIME[detected] {
		return nil, fmt.Errorf("unsupported image format: %s (only JPEG and PNG accepted)", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = downscale(img, n.MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: n.Quality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale resizes the image so neither dimension exceeds maxDim.
// Uses high-quality Catmull-Rom interpolation.
// Returns the original image if already within bounds.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}

	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}

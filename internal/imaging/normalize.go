package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	// ErrImageDecode is returned for missing, empty or undecodable payloads
	ErrImageDecode = errors.New("image decode error")
	// ErrInvalidFileType is returned when the payload is not PNG, JPEG or WEBP
	ErrInvalidFileType = errors.New("invalid file type")
)

// Format is a supported image encoding
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// Input geometry expected by the freshness estimator.
const (
	Size     = 224
	Channels = 3
)

// DefaultMaxPixels bounds the decoded size of an upload (about a 48 MP photo)
const DefaultMaxPixels = 48_000_000

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// CheckExtension validates the declared file name of an upload
func CheckExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: %q (allowed: png, jpg, jpeg, webp)", ErrInvalidFileType, filename)
	}
	return nil
}

// DetectFormat sniffs the payload signature. Recognized non-image payloads
// and undecodable bytes are reported as decode errors; recognized images
// outside the allowed set as invalid file types.
func DetectFormat(data []byte) (Format, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrImageDecode)
	}
	switch ct := http.DetectContentType(data); ct {
	case "image/png":
		return FormatPNG, nil
	case "image/jpeg":
		return FormatJPEG, nil
	case "image/webp":
		return FormatWebP, nil
	default:
		if strings.HasPrefix(ct, "image/") {
			return "", fmt.Errorf("%w: %s", ErrInvalidFileType, ct)
		}
		return "", fmt.Errorf("%w: unrecognized content %s", ErrImageDecode, ct)
	}
}

// Normalize decodes data and converts it into the estimator input tensor:
// RGB, 224x224, values scaled linearly to [0, 1], with a batch dimension of 1.
func Normalize(data []byte) (*Tensor, error) {
	return NormalizeLimit(data, DefaultMaxPixels)
}

// NormalizeLimit is Normalize with an explicit bound on width*height. The
// header is checked before any pixel buffer is allocated.
func NormalizeLimit(data []byte, maxPixels int) (*Tensor, error) {
	format, err := DetectFormat(data)
	if err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: image has no pixels", ErrImageDecode)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageDecode, cfg.Width, cfg.Height, maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: image has no pixels", ErrImageDecode)
	}

	o := 1
	if format == FormatJPEG {
		o = orientation(data)
	}
	return fromNRGBA(resizeOriented(img, o)), nil
}

// resizeOriented scales img to Size x Size and then applies EXIF orientation
// o. The target is square, so rotating after the resize gives the same
// result as rotating the full-resolution image first.
func resizeOriented(img image.Image, o int) *image.NRGBA {
	resized := image.NewNRGBA(image.Rect(0, 0, Size, Size))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Src, nil)

	if o != 1 {
		resized = applyOrientation(resized, o)
		log.Debugf("Applied EXIF orientation correction: %d", o)
	}
	return resized
}

// orientation reads the EXIF orientation tag, defaulting to 1 (upright)
func orientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return v
}

// applyOrientation maps an image stored with EXIF orientation o back to
// upright. Orientations 5-8 swap width and height.
func applyOrientation(img *image.NRGBA, o int) *image.NRGBA {
	if o < 2 || o > 8 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dw, dh := w, h
	if o >= 5 {
		dw, dh = h, w
	}

	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			dx, dy := x, y
			switch o {
			case 2: // flip horizontal
				dx = w - 1 - x
			case 3: // rotate 180
				dx, dy = w-1-x, h-1-y
			case 4: // flip vertical
				dy = h - 1 - y
			case 5: // transpose
				dx, dy = y, x
			case 6: // rotate 90 clockwise
				dx, dy = h-1-y, x
			case 7: // transverse
				dx, dy = h-1-y, w-1-x
			case 8: // rotate 90 counter-clockwise
				dx, dy = y, w-1-x
			}
			copy(dst.Pix[dy*dst.Stride+dx*4:dy*dst.Stride+dx*4+4], src[x*4:x*4+4])
		}
	}
	return dst
}

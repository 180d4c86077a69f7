package imaging

import (
	"image"
	"math"
)

// Tensor is a dense float32 batch in NHWC layout
type Tensor struct {
	Shape []int64
	Data  []float32
}

// NewTensor allocates a zeroed [1, Size, Size, Channels] tensor
func NewTensor() *Tensor {
	return &Tensor{
		Shape: []int64{1, Size, Size, Channels},
		Data:  make([]float32, Size*Size*Channels),
	}
}

// At returns the value of channel c at pixel (x, y) of the first batch entry
func (t *Tensor) At(x, y, c int) float32 {
	return t.Data[(y*Size+x)*Channels+c]
}

// Mean is the average of every element, used as a cheap brightness proxy
func (t *Tensor) Mean() float64 {
	if len(t.Data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range t.Data {
		sum += float64(v)
	}
	return sum / float64(len(t.Data))
}

// Image converts the tensor back to an opaque 8-bit image
func (t *Tensor) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, Size, Size))
	for i, p := 0, 0; i+Channels <= len(t.Data); i, p = i+Channels, p+4 {
		img.Pix[p] = toByte(t.Data[i])
		img.Pix[p+1] = toByte(t.Data[i+1])
		img.Pix[p+2] = toByte(t.Data[i+2])
		img.Pix[p+3] = 0xff
	}
	return img
}

func fromNRGBA(img *image.NRGBA) *Tensor {
	t := NewTensor()
	for y := 0; y < Size; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < Size; x++ {
			src := row[x*4:]
			dst := (y*Size + x) * Channels
			t.Data[dst] = float32(src[0]) / 255
			t.Data[dst+1] = float32(src[1]) / 255
			t.Data[dst+2] = float32(src[2]) / 255
		}
	}
	return t
}

func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return uint8(math.Round(float64(v) * 255))
}

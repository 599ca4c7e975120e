package main

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/chai2010/tiff"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	ts "github.com/sugarme/gotch/tensor"
	"golang.org/x/image/draw"
)

// readImage reads image from file.
func readImage(filename string) (image.Image, error) {
	ext := filepath.Ext(filename)
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext {
	case ".png", ".PNG":
		return png.Decode(f)
	case ".jpg", ".jpeg", ".JPG", ".JPEG":
		return jpeg.Decode(f)
	case ".tiff", ".tif", ".TIFF", ".TIF":
		return tiff.Decode(f)
	default:
		err = fmt.Errorf("Unsupported image format: %v\n", ext)
		return nil, err
	}
}

// resizeSquare scales img to size x size. Masks use nearest neighbour to
// keep label values crisp; images use bilinear.
func resizeSquare(img image.Image, size int, isMask bool) image.Image {
	if size <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() == size && b.Dy() == size {
		return img
	}

	interp := resize.Bilinear
	if isMask {
		interp = resize.NearestNeighbor
	}

	return resize.Resize(uint(size), uint(size), img, interp)
}

// flipPair applies the same flip to an image and its mask so geometry
// stays paired. kind: 0 = none, 1 = horizontal, 2 = vertical.
func flipPair(img, mask image.Image, kind int) (image.Image, image.Image) {
	switch kind {
	case 1:
		return imaging.FlipH(img), imaging.FlipH(mask)
	case 2:
		return imaging.FlipV(img), imaging.FlipV(mask)
	default:
		return img, mask
	}
}

// imageToTensor converts an image to a [3 H W] float tensor with values
// in [0 255].
func imageToTensor(img image.Image) *ts.Tensor {
	b := img.Bounds()
	h, w := b.Dy(), b.Dx()

	vals := make([]float32, 3*h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			vals[0*h*w+y*w+x] = float32(r >> 8)
			vals[1*h*w+y*w+x] = float32(g >> 8)
			vals[2*h*w+y*w+x] = float32(bl >> 8)
		}
	}

	return ts.MustOfSlice(vals).MustView([]int64{3, int64(h), int64(w)}, true)
}

// rgb2GrayScale converts a RGB (3xHxW) tensor to grayscale (HxW).
// ref. https://github.com/pytorch/vision/blob/master/torchvision/transforms/functional_tensor.py#L196-L234
// (0.2989 * r + 0.587 * g + 0.114 * b)
func rgb2GrayScale(x *ts.Tensor) (*ts.Tensor, error) {
	size := x.MustSize()
	if len(size) < 3 {
		err := fmt.Errorf("Expect at least 3D tensor. Got %v dimensions.\n", len(size))
		return nil, err
	}

	chanSize := size[len(size)-3]
	if chanSize != 3 {
		err := fmt.Errorf("Expect image of 3 channels for RGB. Got %v .\n", chanSize)
		return nil, err
	}

	channels := x.MustUnbind(-3, false)
	r := channels[0].MustMul1(ts.FloatScalar(0.2989), true)
	g := channels[1].MustMul1(ts.FloatScalar(0.587), true)
	b := channels[2].MustMul1(ts.FloatScalar(0.114), true)

	rg := r.MustAdd(g, true)
	g.MustDrop()
	gray := rg.MustAdd(b, true)
	b.MustDrop()

	return gray, nil
}

// maskToImage converts a [C H W] or [H W] probability tensor to a binary
// grayscale image at the given threshold. With multiple class channels a
// pixel is foreground when its best class clears the threshold.
func maskToImage(prob *ts.Tensor, threshold float64) image.Image {
	size := prob.MustSize()
	h := int(size[len(size)-2])
	w := int(size[len(size)-1])
	classes := 1
	for _, d := range size[:len(size)-2] {
		classes *= int(d)
	}

	flat := prob.MustView([]int64{-1}, false)
	vals := flat.Float64Values()
	flat.MustDrop()

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			best := vals[y*w+x]
			for c := 1; c < classes; c++ {
				if v := vals[c*h*w+y*w+x]; v > best {
					best = v
				}
			}
			if best > threshold {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	return img
}

// overlayMask draws mask over img at 25% opacity and writes the result as
// PNG.
func overlayMask(img, mask image.Image, outPath string) error {
	b := img.Bounds()
	rec := image.Rectangle{image.Point{0, 0}, image.Point{b.Dx(), b.Dy()}}
	dstImg := image.NewRGBA(rec)
	draw.Draw(dstImg, rec, img, b.Min, draw.Src)

	opacity := image.NewUniform(color.Alpha{64}) // 25% opacity
	draw.DrawMask(dstImg, rec, mask, image.Point{}, opacity, image.Point{}, draw.Over)

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	return png.Encode(out, dstImg)
}

// savePNG writes img to outPath.
func savePNG(img image.Image, outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	return png.Encode(out, img)
}

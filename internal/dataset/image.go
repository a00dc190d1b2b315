package dataset

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"
)

// Loader reads tile images from a directory, resizing them to a fixed
// spatial size and normalizing the pixel values to [0,1].
type Loader struct {
	dir  string
	size int
}

// NewLoader creates a new image loader.
func NewLoader(dir string, size int) *Loader {
	return &Loader{
		dir:  dir,
		size: size,
	}
}

// Size returns the spatial size the loader resizes to.
func (l *Loader) Size() int {
	return l.size
}

// Load reads the image for the given tile id.
// Images are expected as <dir>/<id>.jpg or <dir>/<id>.png.
func (l *Loader) Load(id string) ([]float64, error) {

	var f *os.File
	var err error
	for _, ext := range []string{"jpg", "png"} {
		f, err = os.Open(filepath.Join(l.dir, fmt.Sprintf("%s.%s", id, ext)))
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("could not open image for tile '%s': %w", id, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode image for tile '%s': %w", id, err)
	}

	return Pixels(img, l.size), nil
}

// Pixels resizes the given image to size x size and flattens it into a
// row-major H*W*3 tensor with values in [0,1].
func Pixels(img image.Image, size int) []float64 {

	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)

	pixels := make([]float64, size*size*3)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			i := (y*size + x) * 3
			pixels[i] = float64(r) / 65535.0
			pixels[i+1] = float64(g) / 65535.0
			pixels[i+2] = float64(b) / 65535.0
		}
	}
	return pixels
}

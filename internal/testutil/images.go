package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WritePNG writes a w×h PNG filled with a solid color, creating parent
// directories as needed.
func WritePNG(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// WriteImageTree writes an image-folder tree under root: one directory per
// class, perClass PNGs each, distinctly colored per class. Returns the class
// directory names in label order.
func WriteImageTree(t *testing.T, root string, classes, perClass int) []string {
	t.Helper()

	names := make([]string, classes)
	for c := 0; c < classes; c++ {
		name := fmt.Sprintf("class%02d", c)
		names[c] = name
		for i := 0; i < perClass; i++ {
			col := color.RGBA{
				R: uint8(50 + 60*c),
				G: uint8(30 + 25*i),
				B: uint8(200 - 60*c),
				A: 255,
			}
			WritePNG(t, filepath.Join(root, name, fmt.Sprintf("img%02d.png", i)), 20, 20, col)
		}
	}
	return names
}

package cargo

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image"
	"image/color"
	"path/filepath"
	"testing"
)

func TestTextDrawer_DrawText(t *testing.T) {
	d, err := NewTextDrawer("")
	require.NoError(t, err)
	defer d.Close()

	img := image.NewRGBA(image.Rect(0, 0, 120, 40))
	d.DrawText(img, "Hello World", 4, 20, color.White)

	var painted int
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			painted++
		}
	}
	assert.Greater(t, painted, 0)
}

func TestTextDrawer_DrawLabel(t *testing.T) {
	d, err := NewTextDrawer("")
	require.NoError(t, err)
	defer d.Close()
	require.NoError(t, d.SetSize(16))

	img := image.NewRGBA(image.Rect(0, 0, 300, 100))
	bg := color.RGBA{R: 20, G: 20, B: 20, A: 255}
	rect := d.DrawLabel(img, "volume 3.21 m3", 10, 10, color.White, bg)

	assert.Equal(t, image.Pt(10, 10), rect.Min)
	assert.Greater(t, rect.Dx(), d.Measure("volume"))
	assert.GreaterOrEqual(t, rect.Dy(), d.LineHeight())
	assert.Equal(t, bg, img.RGBAAt(rect.Min.X, rect.Min.Y))
	assert.Equal(t, d.LabelSize("volume 3.21 m3"), rect.Size())

	// 字号越大文本越宽
	w16 := d.Measure("volume")
	require.NoError(t, d.SetSize(32))
	assert.Greater(t, d.Measure("volume"), w16)
}

func TestNewTextDrawer_Errors(t *testing.T) {
	_, err := NewTextDrawer(filepath.Join(t.TempDir(), "missing.ttf"))
	assert.Error(t, err)

	_, err = NewTextDrawerFromBytes([]byte("not a font"))
	assert.Error(t, err)
}

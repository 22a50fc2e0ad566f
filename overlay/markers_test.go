package overlay

import (
	"github.com/getcharzp/go-cargo/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func greenImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{G: 80, A: 255}), image.Point{}, draw.Src)
	return img
}

func TestMarkerScale(t *testing.T) {
	plate := grid.PixelBox{X1: 180, Y1: 250, X2: 220, Y2: 265}

	mpp, floorY, ok := MarkerScale(MarkerScene{Plate: plate, TailgateTop: 200, TailgateBottom: 240, BedHeight: 0.32})
	require.True(t, ok)
	assert.InDelta(t, 0.008, mpp, 1e-12)
	assert.Equal(t, 240, floorY)

	// 后板无效时按车牌宽度, 底板取车牌上沿
	mpp, floorY, ok = MarkerScale(MarkerScene{Plate: plate, TailgateTop: 240, TailgateBottom: 200, BedHeight: 0.32})
	require.True(t, ok)
	assert.InDelta(t, PlateWidth/40, mpp, 1e-12)
	assert.Equal(t, 250, floorY)

	_, _, ok = MarkerScale(MarkerScene{Plate: grid.PixelBox{X1: 10, X2: 10}, TailgateTop: 200, TailgateBottom: 240})
	assert.False(t, ok)
}

func TestRenderer_RenderMarkers(t *testing.T) {
	r, err := NewRenderer(DefaultConfig())
	require.NoError(t, err)
	defer r.Close()

	bg := color.RGBA{G: 80, A: 255}
	src := greenImage(400, 300)
	markers := DefaultMarkers()
	out := r.RenderMarkers(src, MarkerScene{
		Plate:          grid.PixelBox{X1: 180, Y1: 250, X2: 220, Y2: 265},
		TailgateTop:    200,
		TailgateBottom: 240,
		BedHeight:      0.32,
		Markers:        markers,
		Lines:          []string{"height 0.48 m"},
	})
	assert.Equal(t, bg, src.RGBAAt(100, 227))

	// 标尺横跨车牌中心 +-100 像素 (车牌宽 40 x 2.5), 0.008 m/px
	assert.Equal(t, markers[0].Color, out.RGBAAt(100, 227)) // 0.10m
	assert.Equal(t, bg, out.RGBAAt(118, 227))                // 虚线间隔
	assert.Equal(t, markers[2].Color, out.RGBAAt(100, 202)) // 0.30m
	assert.Equal(t, markers[5].Color, out.RGBAAt(100, 165)) // 0.60m
	assert.Equal(t, bg, out.RGBAAt(100, 100))

	// 底板基准线
	assert.Equal(t, DefaultConfig().FloorColor, out.RGBAAt(120, 239))

	// 刻度文字在标尺右侧
	assert.NotEqual(t, bg, out.RGBAAt(306, 227))

	// 后板与车牌边框
	assert.True(t, hasColorNear(out, 170, 220, DefaultConfig().TailgateColor))
	assert.True(t, hasColorNear(out, 180, 258, DefaultConfig().PlateColor))

	// 摘要放在左上角
	assert.NotEqual(t, bg, out.RGBAAt(5, 5))
}

func TestRenderer_RenderMarkers_NoPlate(t *testing.T) {
	r, err := NewRenderer(Config{})
	require.NoError(t, err)
	defer r.Close()

	src := greenImage(100, 80)
	out := r.RenderMarkers(src, MarkerScene{TailgateTop: 20, TailgateBottom: 40, BedHeight: 0.32, Markers: DefaultMarkers()})
	assert.Equal(t, src.Pix, out.Pix)
}

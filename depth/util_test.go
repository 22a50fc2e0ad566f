package depth

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func TestNormalize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 255, G: 0, B: 128, A: 255}), image.Point{}, draw.Src)

	cfg := DefaultConfig()
	const size = 14
	data := normalize(img, size, cfg.Mean, cfg.Std)
	require.Len(t, data, 3*size*size)

	area := size * size
	wantR := (1 - cfg.Mean[0]) / cfg.Std[0]
	wantG := (0 - cfg.Mean[1]) / cfg.Std[1]
	wantB := (float32(128*257)/65535 - cfg.Mean[2]) / cfg.Std[2]
	for _, idx := range []int{0, area / 2, area - 1} {
		assert.InDelta(t, wantR, data[idx], 1e-4)
		assert.InDelta(t, wantG, data[area+idx], 1e-4)
		assert.InDelta(t, wantB, data[2*area+idx], 1e-4)
	}
}

func TestUpsample_Constant(t *testing.T) {
	data := make([]float32, 16)
	for i := range data {
		data[i] = 2.5
	}
	m := upsample(data, 4, 4, 9, 7)
	r, c := m.Dims()
	assert.Equal(t, 7, r)
	assert.Equal(t, 9, c)
	assert.Equal(t, 2.5, m.At(3, 4))
}

func TestUpsample_Gradient(t *testing.T) {
	// 上远下近: 行号越大数值越大
	const w, h = 8, 8
	data := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			data[y*w+x] = float32(y) * 0.5
		}
	}

	m := upsample(data, w, h, 32, 48)
	r, c := m.Dims()
	require.Equal(t, 48, r)
	require.Equal(t, 32, c)

	assert.Less(t, m.At(2, 16), m.At(24, 16))
	assert.Less(t, m.At(24, 16), m.At(45, 16))
	for y := 0; y < r; y++ {
		assert.InDelta(t, m.At(y, 0), m.At(y, c-1), 1e-3)
		assert.GreaterOrEqual(t, m.At(y, 0), 0.0)
		assert.LessOrEqual(t, m.At(y, 0), 3.5)
	}
}

func TestUpsample_Identity(t *testing.T) {
	data := []float32{
		0, 1, 2,
		3, 4, 5,
	}
	m := upsample(data, 3, 2, 3, 2)
	for i, v := range data {
		assert.InDelta(t, float64(v), m.At(i/3, i%3), 5.0/65535*2)
	}
}

func TestUpsample_StepStaysInRange(t *testing.T) {
	// 阶跃边缘上 Catmull-Rom 会过冲, 输出仍在原值域内
	data := make([]float32, 8*8)
	for y := 0; y < 8; y++ {
		for x := 4; x < 8; x++ {
			data[y*8+x] = 1
		}
	}
	m := upsample(data, 8, 8, 37, 29)
	r, c := m.Dims()
	for y := 0; y < r; y++ {
		for x := 0; x < c; x++ {
			v := m.At(y, x)
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 1.0)
		}
	}
	assert.InDelta(t, 0, m.At(14, 0), 1e-4)
	assert.InDelta(t, 1, m.At(14, c-1), 1e-4)
}

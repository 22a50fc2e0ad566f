package estimate

import (
	"encoding/json"
	"github.com/getcharzp/go-cargo/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"math"
	"testing"
)

const bedHeight = 0.32

func assertBounded(t *testing.T, hm *mat.Dense, maxHeight float64) {
	t.Helper()
	for _, v := range grid.Values(hm) {
		require.False(t, math.IsNaN(v))
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, maxHeight)
	}
}

func TestCalibrate_FloorVisible(t *testing.T) {
	crop := grid.Fill(40, 60, -0.1)
	floor := grid.Fill(40, 60, 0)

	hm, cal, err := Calibrate(crop, floor, bedHeight, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, RegimeFloorVisible, cal.Regime)
	assert.InDelta(t, -0.1, cal.P5, 1e-12)
	assert.Greater(t, cal.MetersPerDepthUnit, 0.0)
	assert.InDelta(t, bedHeight/0.1, cal.MetersPerDepthUnit, 1e-9)
	assert.InDelta(t, -0.1, cal.FloorOffset, 1e-12)
	assertBounded(t, hm, DefaultMaxCargoHeight)
}

func TestCalibrate_FloorHidden(t *testing.T) {
	rows, cols := 40, 60
	crop := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if r < rows/2 {
				crop.Set(r, c, 0.05)
			} else {
				crop.Set(r, c, 0.25)
			}
		}
	}
	floor := grid.Fill(rows, cols, 0)

	hm, cal, err := Calibrate(crop, floor, bedHeight, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, RegimeFloorHidden, cal.Regime)
	assert.InDelta(t, 0.05, cal.P5, 1e-12)
	assert.InDelta(t, 0.25, cal.P95, 1e-12)
	assert.Greater(t, cal.MetersPerDepthUnit, 0.0)
	assert.InDelta(t, DefaultReferenceSpan/0.2, cal.MetersPerDepthUnit, 1e-9)
	assert.InDelta(t, -bedHeight/cal.MetersPerDepthUnit, cal.FloorOffset, 1e-12)

	// 最低的货物 (P5) 在后板上沿, 即高出底板 bedHeight
	assert.InDelta(t, (0.05+bedHeight/1.5)*1.5, hm.At(5, 30), 1e-9)
	assert.InDelta(t, (0.25+bedHeight/1.5)*1.5, hm.At(35, 30), 1e-9)
	assertBounded(t, hm, DefaultMaxCargoHeight)
}

func TestCalibrate_ZeroDelta(t *testing.T) {
	crop := grid.Fill(30, 30, 0.7)
	floor := grid.Fill(30, 30, 0.7)

	hm, cal, err := Calibrate(crop, floor, bedHeight, DefaultConfig())
	assert.ErrorIs(t, err, ErrCalibration)
	assert.Equal(t, RegimeFloorHidden, cal.Regime)
	require.NotNil(t, hm)
	assertBounded(t, hm, 0)
}

func TestCalibrate_Bounded(t *testing.T) {
	cfg := DefaultConfig()
	for seed := int64(1); seed <= 10; seed++ {
		crop := randomMap(50, 70, seed)
		floor := randomMap(50, 70, seed+100)

		hm, cal, err := Calibrate(crop, floor, bedHeight, cfg)
		require.NoError(t, err)
		assert.Greater(t, cal.MetersPerDepthUnit, 0.0)
		assertBounded(t, hm, cfg.MaxCargoHeight)
	}
}

func TestCalibrate_NaN(t *testing.T) {
	crop := grid.Fill(20, 20, math.NaN())
	floor := grid.Fill(20, 20, 0)
	hm, _, err := Calibrate(crop, floor, bedHeight, DefaultConfig())
	assert.ErrorIs(t, err, ErrCalibration)
	assertBounded(t, hm, 0)
}

func TestCalibrate_InvalidInput(t *testing.T) {
	_, _, err := Calibrate(grid.Fill(10, 10, 0), grid.Fill(10, 9, 0), bedHeight, DefaultConfig())
	assert.ErrorIs(t, err, ErrCalibration)

	_, _, err = Calibrate(grid.Fill(10, 10, 0), grid.Fill(10, 10, 0), 0, DefaultConfig())
	assert.ErrorIs(t, err, ErrCalibration)
}

func TestCalibrate_SmallCrop(t *testing.T) {
	// 内部区域为空时使用全部数据
	crop := mat.NewDense(4, 4, []float64{
		-0.4, -0.4, -0.4, -0.4,
		-0.4, -0.4, -0.4, -0.4,
		-0.4, -0.4, -0.4, -0.4,
		-0.4, -0.4, -0.4, -0.4,
	})
	_, cal, err := Calibrate(crop, grid.Fill(4, 4, 0), bedHeight, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, RegimeFloorVisible, cal.Regime)
	assert.InDelta(t, 0.8, cal.MetersPerDepthUnit, 1e-9)
}

// 内部恰好 5% 的像素低于基准面: P5 落在负值与正值之间, 按插值位置应为正数
func TestCalibrate_PercentileBoundary(t *testing.T) {
	rows, cols := 40, 48
	crop := grid.Fill(rows, cols, 0.1)
	for r := 0; r < rows; r++ {
		crop.Set(r, 4, -0.2)
		crop.Set(r, 5, -0.2)
	}
	floor := grid.Fill(rows, cols, 0)

	hm, cal, err := Calibrate(crop, floor, bedHeight, DefaultConfig())
	require.NoError(t, err)
	// 内部 32x40, 负值 64 个, h = 1279*0.05 = 63.95
	assert.InDelta(t, 0.085, cal.P5, 1e-9)
	assert.InDelta(t, 0.1, cal.P95, 1e-9)
	assert.Equal(t, RegimeFloorHidden, cal.Regime)
	assert.InDelta(t, DefaultReferenceSpan/0.015, cal.MetersPerDepthUnit, 1e-6)
	assertBounded(t, hm, DefaultMaxCargoHeight)
}

// 100x200 的车斗, 底板全部可见 (-0.5), 中间 20x20 的小堆 (-0.1)
func TestCalibrate_Mound(t *testing.T) {
	crop := grid.Fill(100, 200, -0.5)
	for r := 40; r < 60; r++ {
		for c := 90; c < 110; c++ {
			crop.Set(r, c, -0.1)
		}
	}
	floor := grid.Fill(100, 200, 0)

	hm, cal, err := Calibrate(crop, floor, bedHeight, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, RegimeFloorVisible, cal.Regime)
	assert.InDelta(t, -0.5, cal.P5, 1e-9)
	assert.InDelta(t, 0.64, cal.MetersPerDepthUnit, 1e-9)
	assert.InDelta(t, 0.256, hm.At(50, 100), 1e-9)
	assert.InDelta(t, 0.0, hm.At(10, 10), 1e-9)
	assert.InDelta(t, 0.0, hm.At(95, 195), 1e-9)
	assert.InDelta(t, 0.256, grid.Max(hm), 1e-9)
	assertBounded(t, hm, DefaultMaxCargoHeight)
}

func TestRegime_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]Regime{"a": RegimeFloorVisible, "b": RegimeFloorHidden})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"floor_visible","b":"floor_hidden"}`, string(data))
	assert.Equal(t, "unknown", Regime(0).String())
}

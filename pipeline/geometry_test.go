package pipeline

import (
	"context"
	"errors"
	"github.com/getcharzp/go-cargo/estimate"
	"github.com/getcharzp/go-cargo/grid"
	"github.com/getcharzp/go-cargo/locator"
	"github.com/getcharzp/go-cargo/overlay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

type fakeAnalyzer struct {
	geometry    locator.Geometry
	fill        locator.Fill
	geometryErr error
	fillErr     error
	calls       atomic.Int32
}

func (f *fakeAnalyzer) Geometry(context.Context, string) (locator.Geometry, error) {
	f.calls.Add(1)
	return f.geometry, f.geometryErr
}

func (f *fakeAnalyzer) Fill(context.Context, string) (locator.Fill, error) {
	f.calls.Add(1)
	return f.fill, f.fillErr
}

// 后板 0.5..0.7 对应 0.32m, 货物最高点 0.4 -> 0.48m
func rearView() *fakeAnalyzer {
	return &fakeAnalyzer{
		geometry: locator.Geometry{
			PlateBox:        grid.BoundingBox{0.45, 0.8, 0.55, 0.85},
			TailgateTopY:    0.5,
			TailgateBottomY: 0.7,
			CargoTopY:       0.4,
		},
		fill: locator.Fill{RatioL: 0.7, RatioW: 0.8, PackingDensity: 0.65, Reasoning: "moderate"},
	}
}

func TestRunner_RunGeometry(t *testing.T) {
	img := writePNG(t, t.TempDir(), "truck.png", 200, 100)
	r, err := NewGeometryRunner(rearView())
	require.NoError(t, err)

	res, err := r.RunGeometry(context.Background(), Request{ImagePath: img})
	require.NoError(t, err)

	volume := 3.4 * 2.06 * 0.48 * 0.7 * 0.8 * estimate.ShapeFactor
	assert.Equal(t, MethodGeometry, res.Method)
	assert.Equal(t, "4t", res.TruckClass)
	assert.Equal(t, [4]float64{0.45, 0.8, 0.55, 0.85}, res.PlateBox)
	assert.Equal(t, 0.32, res.BedHeightM)
	assert.Equal(t, 0.48, res.HeightM)
	assert.Equal(t, 0.7, res.FillRatioL)
	assert.Equal(t, 0.8, res.FillRatioW)
	assert.Equal(t, 0.65, res.PackingDensity)
	assert.Equal(t, 0.85, res.ShapeFactor)
	assert.InDelta(t, volume, res.EstimatedVolumeM3, 1e-4)
	assert.InDelta(t, volume*2.5*0.65, res.EstimatedTonnage, 0.01)
	assert.Equal(t, "moderate", res.Reasoning)
	assert.Empty(t, res.OverlayPath)
}

func TestRunner_RunGeometry_RequestPacking(t *testing.T) {
	img := writePNG(t, t.TempDir(), "truck.png", 64, 48)
	a := rearView()
	a.fill.PackingDensity = 0
	r, err := NewGeometryRunner(a)
	require.NoError(t, err)

	res, err := r.RunGeometry(context.Background(), Request{ImagePath: img, PackingDensity: 0.55})
	require.NoError(t, err)
	assert.Equal(t, 0.55, res.PackingDensity)
}

func TestRunner_RunGeometry_Errors(t *testing.T) {
	img := writePNG(t, t.TempDir(), "truck.png", 64, 48)
	boom := errors.New("analyzer offline")

	a := rearView()
	a.geometryErr = boom
	r, err := NewGeometryRunner(a)
	require.NoError(t, err)
	_, err = r.RunGeometry(context.Background(), Request{ImagePath: img})
	assert.ErrorIs(t, err, boom)

	a = rearView()
	a.fillErr = boom
	r, err = NewGeometryRunner(a)
	require.NoError(t, err)
	_, err = r.RunGeometry(context.Background(), Request{ImagePath: img})
	assert.ErrorIs(t, err, boom)

	a = rearView()
	a.geometry.TailgateTopY, a.geometry.TailgateBottomY = 0.7, 0.5
	r, err = NewGeometryRunner(a)
	require.NoError(t, err)
	_, err = r.RunGeometry(context.Background(), Request{ImagePath: img})
	assert.ErrorIs(t, err, estimate.ErrTailgate)

	// 输入错误时不调用分析器
	a = rearView()
	r, err = NewGeometryRunner(a)
	require.NoError(t, err)
	_, err = r.RunGeometry(context.Background(), Request{ImagePath: img, Material: "gravel"})
	assert.ErrorIs(t, err, ErrInput)
	assert.Zero(t, a.calls.Load())
}

func TestRunner_RunGeometry_Overlay(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "truck.png", 200, 100)
	renderer, err := overlay.NewRenderer(overlay.DefaultConfig())
	require.NoError(t, err)
	defer renderer.Close()

	cfg := DefaultConfig()
	cfg.OverlayDir = filepath.Join(dir, "out")
	r, err := NewGeometryRunner(rearView(), WithConfig(cfg), WithRenderer(renderer))
	require.NoError(t, err)

	res, err := r.RunGeometry(context.Background(), Request{ImagePath: img})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OverlayDir, "truck_markers.png"), res.OverlayPath)
	_, err = os.Stat(res.OverlayPath)
	assert.NoError(t, err)
}

func TestNewGeometryRunner(t *testing.T) {
	_, err := NewGeometryRunner(nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.OverlayDir = t.TempDir()
	_, err = NewGeometryRunner(rearView(), WithConfig(cfg))
	assert.Error(t, err)

	img := writePNG(t, t.TempDir(), "truck.png", 64, 48)
	r, err := NewGeometryRunner(rearView())
	require.NoError(t, err)
	_, err = r.Run(context.Background(), Request{ImagePath: img})
	assert.Error(t, err)

	d, err := NewRunner(&sceneDepth{})
	require.NoError(t, err)
	_, err = d.RunGeometry(context.Background(), Request{ImagePath: img})
	assert.Error(t, err)
}

func TestRunGeometryBatch(t *testing.T) {
	dir := t.TempDir()
	reqs := []Request{
		{ImagePath: writePNG(t, dir, "a.png", 64, 48)},
		{ImagePath: filepath.Join(dir, "missing.png")},
		{ImagePath: writePNG(t, dir, "c.png", 64, 48), TruckClass: "10t"},
	}
	cfg := DefaultConfig()
	cfg.Workers = 2
	r, err := NewGeometryRunner(rearView(), WithConfig(cfg))
	require.NoError(t, err)

	items, err := r.RunGeometryBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "4t", items[0].Result.TruckClass)
	assert.ErrorIs(t, items[1].Err, ErrInput)
	assert.Nil(t, items[1].Result)
	assert.Equal(t, "10t", items[2].Result.TruckClass)
	assert.Equal(t, reqs[2].ImagePath, items[2].Request.ImagePath)
}

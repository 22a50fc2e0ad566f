package estimate

import (
	"fmt"
	"github.com/getcharzp/go-cargo/grid"
	"gonum.org/v1/gonum/mat"
	"math"
)

// Regime 标定方式
type Regime int

const (
	// RegimeFloorVisible 车斗底板可见 (部分装载): |P5| 对应后板高度
	RegimeFloorVisible Regime = iota + 1
	// RegimeFloorHidden 底板被货物完全覆盖: P5..P95 对应参考高度
	RegimeFloorHidden
)

func (r Regime) String() string {
	switch r {
	case RegimeFloorVisible:
		return "floor_visible"
	case RegimeFloorHidden:
		return "floor_hidden"
	default:
		return "unknown"
	}
}

// MarshalText 以字符串形式输出到 JSON
func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Calibration 标定结果
type Calibration struct {
	Regime             Regime
	MetersPerDepthUnit float64 // 每深度单位对应的米数, 成功时恒为正
	FloorOffset        float64 // 底板在 delta 中的位置 (深度单位)

	// 诊断信息
	P5, P95  float64 // 内部区域 delta 百分位
	DeltaMin float64
	DeltaP50 float64
	DeltaMax float64
}

// Calibrate 把 (深度 - 基准面) 转换为底板以上的高度 (米)
//
// 失败时返回全 0 高度图与 ErrCalibration, 调用方不应继续使用该结果
//
// # Params:
//
//	crop: 车斗区域深度
//	floor: 同尺寸的基准面 (EstimateFloorPlane)
//	bedHeight: 后板上沿到底板的高度 (米)
//	cfg: 参数
func Calibrate(crop, floor *mat.Dense, bedHeight float64, cfg Config) (*mat.Dense, Calibration, error) {
	cfg = cfg.withDefaults()
	var cal Calibration

	h, w := crop.Dims()
	fh, fw := floor.Dims()
	if h != fh || w != fw {
		return nil, cal, fmt.Errorf("%w: 深度 %dx%d 与基准面 %dx%d 尺寸不一致", ErrCalibration, w, h, fw, fh)
	}
	if !(bedHeight > 0) {
		return nil, cal, fmt.Errorf("%w: 后板高度必须为正数, 实际 %v", ErrCalibration, bedHeight)
	}

	var delta mat.Dense
	delta.Sub(crop, floor)
	filtered := grid.MedianFilter3(&delta)

	interior := interiorValues(filtered)
	cal.P5 = grid.Percentile(interior, lowPercentile)
	cal.P95 = grid.Percentile(interior, highPercentile)
	all := grid.Values(filtered)
	cal.DeltaMin = grid.Min(filtered)
	cal.DeltaP50 = grid.Median(all)
	cal.DeltaMax = grid.Max(filtered)

	if math.IsNaN(cal.P5) || math.IsNaN(cal.P95) {
		return mat.NewDense(h, w, nil), cal, fmt.Errorf("%w: delta 含 NaN", ErrCalibration)
	}

	if cal.P5 < 0 {
		cal.Regime = RegimeFloorVisible
		if -cal.P5 <= epsilon {
			return mat.NewDense(h, w, nil), cal, fmt.Errorf("%w: P5=%g 过小", ErrCalibration, cal.P5)
		}
		cal.MetersPerDepthUnit = bedHeight / -cal.P5
		cal.FloorOffset = cal.P5
	} else {
		cal.Regime = RegimeFloorHidden
		visibleRange := cal.P95 - cal.P5
		if visibleRange <= epsilon {
			return mat.NewDense(h, w, nil), cal, fmt.Errorf("%w: 可见深度范围 %g 过小 (P5=%g, P95=%g)",
				ErrCalibration, visibleRange, cal.P5, cal.P95)
		}
		cal.MetersPerDepthUnit = cfg.ReferenceSpan / visibleRange
		cal.FloorOffset = -bedHeight / cal.MetersPerDepthUnit
	}

	heightMap := mat.NewDense(h, w, nil)
	heightMap.Apply(func(_, _ int, v float64) float64 {
		return clamp((v-cal.FloorOffset)*cal.MetersPerDepthUnit, 0, cfg.MaxCargoHeight)
	}, filtered)
	return heightMap, cal, nil
}

// interiorValues 去掉四周约 10% 边距后的内部数据, 内部为空时返回全部
func interiorValues(delta *mat.Dense) []float64 {
	h, w := delta.Dims()
	my := max(minPixels, h/interiorDivisor)
	mx := max(minPixels, w/interiorDivisor)
	if h-2*my <= 0 || w-2*mx <= 0 {
		return grid.Values(delta)
	}
	return grid.Values(delta.Slice(my, h-my, mx, w-mx).(*mat.Dense))
}

// clamp NaN 视为下限
func clamp(v, lo, hi float64) float64 {
	if !(v > lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

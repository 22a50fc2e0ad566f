package estimate

import (
	"errors"
	"fmt"
	"math"
)

// ErrTailgate 后板上下沿无法作为比例尺
var ErrTailgate = errors.New("后板比例尺无效")

// ShapeFactor 堆形修正: 以堆尖高度计算会高估体积, 介于平顶 (1.0) 与圆锥 (0.33) 之间
const ShapeFactor = 0.85

// TailgateHeight 以后板高度为比例尺, 由图像纵坐标计算货物最高点高出底板的高度 (米)
//
// 后板下沿视为底板, 上沿到下沿对应 bedHeight。结果截断到 [0, maxHeight]。
//
// # Params:
//
//	top, bottom: 后板上沿/下沿纵坐标 (归一化或像素均可, 需同一单位)
//	cargoTop: 货物最高点纵坐标
//	bedHeight: 后板高度 (米)
//	maxHeight: 高度上限 (米), 非正数时使用 DefaultMaxCargoHeight
func TailgateHeight(top, bottom, cargoTop, bedHeight, maxHeight float64) (float64, error) {
	span := bottom - top
	if !(span > epsilon) {
		return 0, fmt.Errorf("%w: 上沿 %v 下沿 %v", ErrTailgate, top, bottom)
	}
	if !(bedHeight > 0) {
		return 0, fmt.Errorf("%w: 后板高度必须为正数, 实际 %v", ErrTailgate, bedHeight)
	}
	if !(maxHeight > 0) {
		maxHeight = DefaultMaxCargoHeight
	}
	metersPerUnit := bedHeight / span
	return clamp((bottom-cargoTop)*metersPerUnit, 0, maxHeight), nil
}

// BoxVolume 车斗尺寸 x 堆高 x 装载比例 x ShapeFactor
func BoxVolume(bedLength, bedWidth, height, fillL, fillW float64) float64 {
	v := bedLength * bedWidth * height * fillL * fillW * ShapeFactor
	return math.Max(v, 0)
}

package estimate

import "errors"

var (
	// ErrDegenerateBox 车斗区域为空, 无法估计底板
	ErrDegenerateBox = errors.New("车斗区域退化")
	// ErrCalibration 深度统计退化, 无法得到比例系数
	ErrCalibration = errors.New("深度标定失败")
)

const (
	// DefaultMaxCargoHeight 货物高度上限 (米), 铰链约 0.6m, 堆尖可略高
	DefaultMaxCargoHeight = 0.80
	// DefaultReferenceSpan 底板不可见时, 可见深度范围 (P5..P95) 对应的高度 (米)
	//
	// 经验值: 满载时高出后板的堆高约等于后板高度, 没有图像依据
	DefaultReferenceSpan = 0.30
	// DefaultGridRows 体积积分网格行数 (车斗宽度方向)
	DefaultGridRows = 10
	// DefaultGridCols 体积积分网格列数 (车斗长度方向)
	DefaultGridCols = 20
)

// 采样相关常量
const (
	edgeStripDivisor = 20 // 侧壁采样条宽度 = 宽 / 20
	smoothDivisor    = 10 // 行平滑窗口 = 高 / 10
	interiorDivisor  = 10 // 内部区域边距 = 尺寸 / 10
	minPixels        = 3
	lowPercentile    = 5
	highPercentile   = 95
	epsilon          = 1e-9
)

// Config 标定与积分参数
type Config struct {
	MaxCargoHeight float64 // 高度图上限 (默认 0.80m)
	ReferenceSpan  float64 // 底板不可见时的参考高度 (默认 0.30m)
	GridRows       int     // 网格行数 (默认 10)
	GridCols       int     // 网格列数 (默认 20)

	// (可选) 深度符号校验失败时直接报错, 默认只给出提示
	StrictSign bool
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		MaxCargoHeight: DefaultMaxCargoHeight,
		ReferenceSpan:  DefaultReferenceSpan,
		GridRows:       DefaultGridRows,
		GridCols:       DefaultGridCols,
	}
}

// withDefaults 用默认值补齐非法字段
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if !(c.MaxCargoHeight > 0) {
		c.MaxCargoHeight = d.MaxCargoHeight
	}
	if !(c.ReferenceSpan > 0) {
		c.ReferenceSpan = d.ReferenceSpan
	}
	if c.GridRows <= 0 {
		c.GridRows = d.GridRows
	}
	if c.GridCols <= 0 {
		c.GridCols = d.GridCols
	}
	return c
}

package locator

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/getcharzp/go-cargo/grid"
	"math"
)

// ErrGeometry 后板几何缺失或不自洽
var ErrGeometry = errors.New("后板几何无效")

// 装载比例缺省值
const (
	DefaultFillRatioL = 0.7
	DefaultFillRatioW = 0.8
)

// Geometry 后板几何, 纵坐标均为归一化值 (向下增大)
type Geometry struct {
	PlateBox        grid.BoundingBox
	TailgateTopY    float64 // 后板上沿
	TailgateBottomY float64 // 后板下沿, 即底板
	CargoTopY       float64 // 货物最高点
}

// Fill 装载比例估计
type Fill struct {
	RatioL float64 // 长度方向 [0, 1]
	RatioW float64 // 宽度方向 [0, 1]

	// PackingDensity 为 0 表示分析结果中没有该字段
	PackingDensity float64
	Reasoning      string
}

// ParseGeometry 解析后板几何
//
// 要求: 车牌框合法, 0 < tailgateTopY < tailgateBottomY <= 1, cargoTopY 在 [0, 1] 内
func ParseGeometry(raw string) (Geometry, error) {
	var g Geometry

	fields, err := parseObject(raw)
	if err != nil {
		return g, err
	}

	data, ok := fields["plateBox"]
	if !ok || string(data) == "null" {
		return g, fmt.Errorf("%w: 未检测到车牌", ErrGeometry)
	}
	if g.PlateBox, err = parseBox(data); err != nil {
		return g, fmt.Errorf("%w: plateBox %w", ErrGeometry, err)
	}

	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"tailgateTopY", &g.TailgateTopY},
		{"tailgateBottomY", &g.TailgateBottomY},
		{"cargoTopY", &g.CargoTopY},
	} {
		v, ok := number(fields[f.key])
		if !ok {
			return g, fmt.Errorf("%w: 缺少 %s", ErrGeometry, f.key)
		}
		if v < 0 || v > 1 {
			return g, fmt.Errorf("%w: %s=%v 超出 [0, 1]", ErrGeometry, f.key, v)
		}
		*f.dst = v
	}

	if !(g.TailgateTopY > 0 && g.TailgateTopY < g.TailgateBottomY) {
		return g, fmt.Errorf("%w: 后板上沿 %v 应在下沿 %v 之上", ErrGeometry, g.TailgateTopY, g.TailgateBottomY)
	}
	return g, nil
}

// ParseFill 解析装载比例, 缺失或非数字的字段取默认值, 超出范围的截断
func ParseFill(raw string) (Fill, error) {
	f := Fill{RatioL: DefaultFillRatioL, RatioW: DefaultFillRatioW}

	fields, err := parseObject(raw)
	if err != nil {
		return f, err
	}
	if v, ok := number(fields["fillRatioL"]); ok {
		f.RatioL = math.Min(math.Max(v, 0), 1)
	}
	if v, ok := number(fields["fillRatioW"]); ok {
		f.RatioW = math.Min(math.Max(v, 0), 1)
	}
	if v, ok := number(fields["packingDensity"]); ok {
		f.PackingDensity = math.Min(math.Max(v, 0.5), 0.9)
	}
	if data, ok := fields["reasoning"]; ok {
		_ = json.Unmarshal(data, &f.Reasoning)
	}
	return f, nil
}

// number 解析数字字段, 兼容 "0.5" 形式的字符串
func number(data json.RawMessage) (float64, bool) {
	if len(data) == 0 || string(data) == "null" {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return 0, false
	}
	v, err := n.Float64()
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

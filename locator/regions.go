// Package locator 定位图片中的车斗与车牌区域
//
// 提供三种来源: 外部分析命令 (CLI)、HTTP 服务, 以及按顺序回退的 Chain。
// 所有来源都返回归一化坐标。
package locator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/getcharzp/go-cargo/grid"
	"regexp"
	"strings"
)

var (
	// ErrLocate 区域定位失败, 调用方应回退到默认车斗框
	ErrLocate = errors.New("区域定位失败")
	// ErrNoJSON 输出中找不到 JSON 对象
	ErrNoJSON = errors.New("输出中没有 JSON 对象")
)

var fencePattern = regexp.MustCompile("```(?:json)?\\s*")

// Regions 定位结果, 未检测到或坐标非法的字段为 nil
type Regions struct {
	BedBox   *grid.BoundingBox `json:"bedBox,omitempty"`
	PlateBox *grid.BoundingBox `json:"plateBox,omitempty"`

	// Dropped 因坐标非法被丢弃的字段及原因
	Dropped map[string]string `json:"-"`
}

// Locator 区域定位接口
type Locator interface {
	Locate(ctx context.Context, imagePath string) (Regions, error)
}

// ParseRegions 解析模型输出
//
// 输出可能带有 markdown 代码块或前后的说明文字, 取最外层的 {...} 解析。
// 长度不为 4、超出 [0, 1] 或 x1>=x2 / y1>=y2 的框会被丢弃并记录在 Dropped 中。
func ParseRegions(raw string) (Regions, error) {
	var out Regions

	fields, err := parseObject(raw)
	if err != nil {
		return out, err
	}

	for _, key := range []string{"bedBox", "plateBox"} {
		data, ok := fields[key]
		if !ok || string(data) == "null" {
			continue
		}
		box, err := parseBox(data)
		if err != nil {
			if out.Dropped == nil {
				out.Dropped = make(map[string]string)
			}
			out.Dropped[key] = err.Error()
			continue
		}
		switch key {
		case "bedBox":
			out.BedBox = &box
		case "plateBox":
			out.PlateBox = &box
		}
	}
	return out, nil
}

// parseObject 去掉 markdown 代码块, 取最外层的 {...} 解析为字段表
func parseObject(raw string) (map[string]json.RawMessage, error) {
	raw = strings.TrimSpace(fencePattern.ReplaceAllString(strings.TrimSpace(raw), ""))
	start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		raw = raw[start : end+1]
	}
	if raw == "" {
		return nil, ErrNoJSON
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoJSON, err)
	}
	return fields, nil
}

func parseBox(data json.RawMessage) (grid.BoundingBox, error) {
	var values []json.Number
	if err := json.Unmarshal(data, &values); err != nil {
		return grid.BoundingBox{}, fmt.Errorf("坐标格式错误: %s", data)
	}
	coords := make([]float64, len(values))
	for i, v := range values {
		f, err := v.Float64()
		if err != nil {
			return grid.BoundingBox{}, fmt.Errorf("坐标不是数字: %s", v)
		}
		coords[i] = f
	}
	return grid.NewBoundingBox(coords)
}

// Chain 依次尝试多个定位器, 返回第一个带车斗框的结果
//
// 若都没有车斗框, 返回最后一个成功的结果 (可能只有车牌框)
type Chain []Locator

// Locate 实现 Locator
func (c Chain) Locate(ctx context.Context, imagePath string) (Regions, error) {
	var (
		last    Regions
		lastErr error
		ok      bool
	)
	for _, l := range c {
		if err := ctx.Err(); err != nil {
			return Regions{}, err
		}
		r, err := l.Locate(ctx, imagePath)
		if err != nil {
			lastErr = err
			continue
		}
		if r.BedBox != nil {
			if r.PlateBox == nil && last.PlateBox != nil {
				r.PlateBox = last.PlateBox
			}
			return r, nil
		}
		last, ok = r, true
	}
	if ok {
		return last, nil
	}
	if lastErr == nil {
		lastErr = errors.New("没有可用的定位器")
	}
	return Regions{}, fmt.Errorf("%w: %w", ErrLocate, lastErr)
}

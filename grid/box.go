package grid

import (
	"fmt"
	"image"
)

// BoundingBox 归一化的矩形框 [x1, y1, x2, y2]，取值范围 [0, 1]
type BoundingBox [4]float64

// DefaultBedBox 未检测到车斗时使用的默认框 (图片中心 60%)
func DefaultBedBox() BoundingBox {
	return BoundingBox{0.2, 0.2, 0.8, 0.8}
}

// NewBoundingBox 从任意长度的切片创建矩形框，并做合法性校验
func NewBoundingBox(v []float64) (BoundingBox, error) {
	var b BoundingBox
	if len(v) != 4 {
		return b, fmt.Errorf("矩形框需要 4 个坐标, 实际 %d 个", len(v))
	}
	copy(b[:], v)
	if !b.Valid() {
		return b, fmt.Errorf("非法矩形框: %v", v)
	}
	return b, nil
}

// Valid 坐标均在 [0, 1] 内且 x1 < x2, y1 < y2
func (b BoundingBox) Valid() bool {
	for _, v := range b {
		if !(v >= 0 && v <= 1) {
			return false
		}
	}
	return b[0] < b[2] && b[1] < b[3]
}

// ToPixels 转换为像素坐标
//
// # Params:
//
//	width, height: 图片宽高
func (b BoundingBox) ToPixels(width, height int) PixelBox {
	x1 := clampInt(int(b[0]*float64(width)), 0, width-1)
	y1 := clampInt(int(b[1]*float64(height)), 0, height-1)
	x2 := max(x1+1, min(int(b[2]*float64(width)), width))
	y2 := max(y1+1, min(int(b[3]*float64(height)), height))
	return PixelBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// FromRect 将像素矩形归一化
func FromRect(r image.Rectangle, width, height int) BoundingBox {
	w, h := float64(width), float64(height)
	return BoundingBox{
		clampFloat(float64(r.Min.X)/w, 0, 1),
		clampFloat(float64(r.Min.Y)/h, 0, 1),
		clampFloat(float64(r.Max.X)/w, 0, 1),
		clampFloat(float64(r.Max.Y)/h, 0, 1),
	}
}

// PixelBox 像素坐标矩形框, 左闭右开
type PixelBox struct {
	X1, Y1, X2, Y2 int
}

// Dx 宽度
func (p PixelBox) Dx() int { return p.X2 - p.X1 }

// Dy 高度
func (p PixelBox) Dy() int { return p.Y2 - p.Y1 }

// Empty 宽或高为 0
func (p PixelBox) Empty() bool { return p.Dx() <= 0 || p.Dy() <= 0 }

// In 是否完全落在 width x height 的网格内
func (p PixelBox) In(width, height int) bool {
	return p.X1 >= 0 && p.Y1 >= 0 && p.X2 <= width && p.Y2 <= height
}

// Rect 转换为 image.Rectangle
func (p PixelBox) Rect() image.Rectangle {
	return image.Rect(p.X1, p.Y1, p.X2, p.Y2)
}

// Array 按 [x1, y1, x2, y2] 输出
func (p PixelBox) Array() [4]int {
	return [4]int{p.X1, p.Y1, p.X2, p.Y2}
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func clampFloat(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

// Package grid 深度图/高度图的公共数值工具: 矩形框换算、裁剪、统计与滤波
package grid

import (
	"errors"
	"fmt"
	"gonum.org/v1/gonum/mat"
)

// ErrEmptyCrop 裁剪区域为空或越界
var ErrEmptyCrop = errors.New("裁剪区域为空")

// New 由行优先数据创建矩阵, data 为 nil 时全 0
func New(rows, cols int, data []float64) *mat.Dense {
	return mat.NewDense(rows, cols, data)
}

// Fill 创建常量矩阵
func Fill(rows, cols int, v float64) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = v
	}
	return mat.NewDense(rows, cols, data)
}

// Crop 复制 box 对应的子区域, 不与原矩阵共享内存
func Crop(m *mat.Dense, box PixelBox) (*mat.Dense, error) {
	rows, cols := m.Dims()
	if box.Empty() || !box.In(cols, rows) {
		return nil, fmt.Errorf("%w: box=%v, 网格=%dx%d", ErrEmptyCrop, box.Array(), cols, rows)
	}
	return mat.DenseCopyOf(m.Slice(box.Y1, box.Y2, box.X1, box.X2)), nil
}

// Mean 全部元素均值
func Mean(m mat.Matrix) float64 {
	r, c := m.Dims()
	return mat.Sum(m) / float64(r*c)
}

// Min 最小值
func Min(m mat.Matrix) float64 {
	return mat.Min(m)
}

// Max 最大值
func Max(m mat.Matrix) float64 {
	return mat.Max(m)
}

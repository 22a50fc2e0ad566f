package estimate

import (
	"gonum.org/v1/gonum/mat"
)

// IntegrateVolume 按车斗物理尺寸划分网格并累加体积
//
// 网格 rows x cols 对齐车斗的物理尺寸而非像素, 每格面积为
// (bedLength/cols) * (bedWidth/rows), 高度取对应像素子区域的均值。
// 像素子区域为空的格子直接跳过。
//
// # Params:
//
//	heightMap: 高度图 (米)
//	bedLength, bedWidth: 车斗长宽 (米)
//	rows, cols: 网格行列数, 非正数时使用默认值
func IntegrateVolume(heightMap *mat.Dense, bedLength, bedWidth float64, rows, cols int) (volume, meanHeight float64) {
	if heightMap == nil || heightMap.IsEmpty() {
		return 0, 0
	}
	if rows <= 0 {
		rows = DefaultGridRows
	}
	if cols <= 0 {
		cols = DefaultGridCols
	}
	h, w := heightMap.Dims()

	cellArea := (bedLength / float64(cols)) * (bedWidth / float64(rows))
	cellH := float64(h) / float64(rows)
	cellW := float64(w) / float64(cols)

	for r := 0; r < rows; r++ {
		r0, r1 := int(float64(r)*cellH), int(float64(r+1)*cellH)
		if r1 <= r0 {
			continue
		}
		for c := 0; c < cols; c++ {
			c0, c1 := int(float64(c)*cellW), int(float64(c+1)*cellW)
			if c1 <= c0 {
				continue
			}
			cell := heightMap.Slice(r0, r1, c0, c1)
			volume += cellArea * mat.Sum(cell) / float64((r1-r0)*(c1-c0))
		}
	}
	return volume, mat.Sum(heightMap) / float64(h*w)
}

// Tonnage 重量 (t) = 体积 x 密度 x 装填率
func Tonnage(volume, density, packingDensity float64) float64 {
	return volume * density * packingDensity
}

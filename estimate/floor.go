package estimate

import (
	"fmt"
	"github.com/getcharzp/go-cargo/grid"
	"gonum.org/v1/gonum/mat"
)

// EstimateFloorPlane 估计车斗区域内逐行的底板基准深度
//
// 透视关系下车斗前部离相机远、后部近, 基准深度随行变化。每行取左右两侧
// 侧壁采样条的中位数 (侧壁在每一行都落在基准面上, 中间可能被货物遮挡),
// 再沿行方向滑动平均, 最后广播到整行。
//
// # Params:
//
//	depthMap: 整张图的相对深度图
//	box: 车斗像素框
func EstimateFloorPlane(depthMap *mat.Dense, box grid.PixelBox) (*mat.Dense, error) {
	rows, cols := depthMap.Dims()
	if box.Empty() || !box.In(cols, rows) {
		return nil, fmt.Errorf("%w: box=%v, 深度图=%dx%d", ErrDegenerateBox, box.Array(), cols, rows)
	}
	h, w := box.Dy(), box.Dx()

	margin := min(max(minPixels, w/edgeStripDivisor), w)
	rowFloor := make([]float64, h)
	samples := make([]float64, 0, 2*margin)
	for r := 0; r < h; r++ {
		row := depthMap.RawRowView(box.Y1 + r)
		samples = append(samples[:0], row[box.X1:box.X1+margin]...)
		samples = append(samples, row[box.X2-margin:box.X2]...)
		rowFloor[r] = grid.Median(samples)
	}

	smooth := grid.MovingAverage(rowFloor, max(minPixels, h/smoothDivisor))

	plane := mat.NewDense(h, w, nil)
	for r, v := range smooth {
		row := plane.RawRowView(r)
		for c := range row {
			row[c] = v
		}
	}
	return plane, nil
}

// FloorProfile 基准面首行 (车斗前部) 与末行 (后部) 的深度
func FloorProfile(plane *mat.Dense) (front, rear float64) {
	r, _ := plane.Dims()
	return plane.At(0, 0), plane.At(r-1, 0)
}

// SignConsistent 后部比前部更近 (深度值更大) 时返回 true
//
// 深度模型约定数值越大越近, 正常透视下 rear >= front
func SignConsistent(plane *mat.Dense) bool {
	front, rear := FloorProfile(plane)
	return rear >= front
}

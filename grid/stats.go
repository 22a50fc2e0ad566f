package grid

import (
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"math"
	"sort"
)

// Median 中位数, 空输入返回 NaN
func Median(values []float64) float64 {
	m, err := stats.Median(values)
	if err != nil {
		return math.NaN()
	}
	return m
}

// Percentile 线性插值百分位数
//
// 与 numpy.percentile 的默认方式一致: 位置 h = (n-1)*p/100,
// 在 s[floor(h)] 与 s[floor(h)+1] 之间线性插值。
//
// # Params:
//
//	values: 样本 (不会被修改)
//	p: 百分位 [0, 100]
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	h := float64(n-1) * clampFloat(p, 0, 100) / 100
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// Values 按行展开矩阵 (支持 Slice 视图)
func Values(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		out = append(out, m.RawRowView(i)...)
	}
	return out
}

// MovingAverage 一维滑动平均, 边界按反射方式延拓
//
// 窗口为偶数时中心偏右一位, 即覆盖 [i-size/2, i-size/2+size)
func MovingAverage(values []float64, size int) []float64 {
	n := len(values)
	out := make([]float64, n)
	if n == 0 || size <= 1 {
		copy(out, values)
		return out
	}
	left := size / 2
	for i := range out {
		var sum float64
		for k := 0; k < size; k++ {
			sum += values[reflect(i-left+k, n)]
		}
		out[i] = sum / float64(size)
	}
	return out
}

// MedianFilter3 3x3 中值滤波, 边界反射, 返回新矩阵
func MedianFilter3(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	window := make([]float64, 0, 9)
	for r := 0; r < rows; r++ {
		dst := out.RawRowView(r)
		for c := 0; c < cols; c++ {
			window = window[:0]
			for dr := -1; dr <= 1; dr++ {
				src := m.RawRowView(reflect(r+dr, rows))
				for dc := -1; dc <= 1; dc++ {
					window = append(window, src[reflect(c+dc, cols)])
				}
			}
			dst[c] = Median(window)
		}
	}
	return out
}

// reflect 反射延拓下标: (d c b a | a b c d | d c b a)
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}

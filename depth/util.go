package depth

import (
	"github.com/up-zero/gotool/imageutil"
	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/mat"
	"image"
	"math"
)

// normalize 缩放到 size x size 并按 ImageNet 均值方差归一化, 输出 CHW
//
// 固定尺寸缩放, 不保持宽高比, 与固定输入形状的 ONNX 导出一致;
// 与按短边缩放再取 14 倍数的预处理相比, 细长画面的深度会略有差异
func normalize(img image.Image, size int, mean, std [3]float32) []float32 {
	resized := imageutil.Resize(img, size, size)
	b := resized.Bounds()
	area := size * size

	data := make([]float32, 3*area)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, bl, _ := resized.At(b.Min.X+x, b.Min.Y+y).RGBA()

			idx := y*size + x
			data[idx] = (float32(r)/65535.0 - mean[0]) / std[0]
			data[area+idx] = (float32(g)/65535.0 - mean[1]) / std[1]
			data[2*area+idx] = (float32(bl)/65535.0 - mean[2]) / std[2]
		}
	}
	return data
}

// upsample 把 srcW x srcH 的模型输出以 Catmull-Rom 插值缩放到原图尺寸
//
// 插值在 16 位灰度上进行: 先按 min/max 线性映射到 [0, 65535], 缩放后再映射回原值域,
// 精度为值域的 1/65535, Catmull-Rom 的过冲被截断在原 min/max 之内
func upsample(data []float32, srcW, srcH, dstW, dstH int) *mat.Dense {
	lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
	for _, v := range data {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	out := mat.NewDense(dstH, dstW, nil)
	span := float64(hi) - float64(lo)
	if !(span > 0) {
		for y := 0; y < dstH; y++ {
			row := out.RawRowView(y)
			for x := range row {
				row[x] = float64(lo)
			}
		}
		return out
	}

	src := image.NewGray16(image.Rect(0, 0, srcW, srcH))
	for y := 0; y < srcH; y++ {
		for x := 0; x < srcW; x++ {
			v := (float64(data[y*srcW+x]) - float64(lo)) / span
			i := src.PixOffset(x, y)
			u := uint16(math.Round(v * 65535))
			src.Pix[i], src.Pix[i+1] = uint8(u>>8), uint8(u)
		}
	}

	dst := image.NewGray16(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	for y := 0; y < dstH; y++ {
		row := out.RawRowView(y)
		for x := range row {
			i := dst.PixOffset(x, y)
			u := uint16(dst.Pix[i])<<8 | uint16(dst.Pix[i+1])
			row[x] = float64(lo) + float64(u)/65535*span
		}
	}
	return out
}

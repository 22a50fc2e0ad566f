package detect

import (
	"github.com/getcharzp/go-cargo/grid"
	"github.com/getcharzp/go-cargo/locator"
	"github.com/up-zero/gotool/imageutil"
	"image"
)

// letterbox 等比缩放到左上角, 其余补 0, 输出 CHW (0-1)
func letterbox(img image.Image, inputSize int) ([]float32, imageParams) {
	bounds := img.Bounds()
	params := imageParams{
		origW: bounds.Dx(),
		origH: bounds.Dy(),
	}

	scale := float32(inputSize) / float32(max(params.origW, params.origH))
	params.scale = scale

	newW := max(1, int(float32(params.origW)*scale))
	newH := max(1, int(float32(params.origH)*scale))

	resized := imageutil.Resize(img, newW, newH)
	rb := resized.Bounds()

	area := inputSize * inputSize
	data := make([]float32, 3*area)
	for y := 0; y < newH; y++ {
		for x := 0; x < newW; x++ {
			r, g, b, _ := resized.At(rb.Min.X+x, rb.Min.Y+y).RGBA()

			idx := y*inputSize + x
			data[idx] = float32(r) / 65535.0
			data[area+idx] = float32(g) / 65535.0
			data[2*area+idx] = float32(b) / 65535.0
		}
	}
	return data, params
}

// decode 解析端到端输出 [x1, y1, x2, y2, score, class_id] x N
func decode(data []float32, params imageParams, threshold float32) []DetResult {
	results := make([]DetResult, 0)

	const stride = 6
	for offset := 0; offset+stride <= len(data); offset += stride {
		score := data[offset+4]
		if score < threshold {
			continue
		}

		// 转换回原图坐标
		x1 := max(0, int(data[offset+0]/params.scale))
		y1 := max(0, int(data[offset+1]/params.scale))
		x2 := min(params.origW, int(data[offset+2]/params.scale))
		y2 := min(params.origH, int(data[offset+3]/params.scale))
		if x2 <= x1 || y2 <= y1 {
			continue
		}

		results = append(results, DetResult{
			ClassID: int(data[offset+5]),
			Score:   score,
			Box:     image.Rect(x1, y1, x2, y2),
		})
	}
	return results
}

// selectRegions 每个类别取得分最高的框并归一化
func selectRegions(results []DetResult, width, height, bedID, plateID int) locator.Regions {
	var (
		out       locator.Regions
		bestBed   *DetResult
		bestPlate *DetResult
	)
	for i := range results {
		r := &results[i]
		switch {
		case r.ClassID == bedID:
			if bestBed == nil || r.Score > bestBed.Score {
				bestBed = r
			}
		case plateID >= 0 && r.ClassID == plateID:
			if bestPlate == nil || r.Score > bestPlate.Score {
				bestPlate = r
			}
		}
	}

	if bestBed != nil {
		if b := grid.FromRect(bestBed.Box, width, height); b.Valid() {
			out.BedBox = &b
		}
	}
	if bestPlate != nil {
		if b := grid.FromRect(bestPlate.Box, width, height); b.Valid() {
			out.PlateBox = &b
		}
	}
	return out
}

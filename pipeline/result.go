package pipeline

import (
	"github.com/getcharzp/go-cargo/estimate"
	"github.com/getcharzp/go-cargo/grid"
	"gonum.org/v1/gonum/mat"
	"math"
	"strconv"
)

// Method 结果中的方法标识
const Method = "depth-volume"

// BoxSource 车斗框来源
type BoxSource string

const (
	BoxFromLocator  BoxSource = "locator"
	BoxFromFallback BoxSource = "fallback"
)

// DepthStats 深度图统计
type DepthStats struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	MeanInBed  float64 `json:"mean_in_bed"`
	FloorFront float64 `json:"floor_front"`
	FloorRear  float64 `json:"floor_rear"`
}

// Result 单张图片的估计结果, 字段与命令行 JSON 输出一一对应
type Result struct {
	Image               string          `json:"image"`
	Method              string          `json:"method"`
	Calibration         string          `json:"calibration"`
	CalibrationRegime   estimate.Regime `json:"calibration_regime"`
	TruckClass          string          `json:"truck_class"`
	MaterialType        string          `json:"material_type"`
	PackingDensity      float64         `json:"packing_density"`
	Density             float64         `json:"density"`
	BedBoxNormalized    [4]float64      `json:"bed_bbox_normalized"`
	BedBoxSource        BoxSource       `json:"bed_bbox_source"`
	PlateBoxNormalized  *[4]float64     `json:"plate_bbox_normalized"`
	BedBoxPixels        [4]int          `json:"bed_bbox_pixels"`
	BedHeightM          float64         `json:"bed_height_m"`
	DepthScale          float64         `json:"depth_scale"`
	FloorFront          float64         `json:"floor_front"`
	FloorRear           float64         `json:"floor_rear"`
	AvgCargoHeightM     float64         `json:"avg_cargo_height_m"`
	EstimatedVolumeM3   float64         `json:"estimated_volume_m3"`
	EstimatedTonnage    float64         `json:"estimated_tonnage"`
	DepthSignConsistent bool            `json:"depth_sign_consistent"`
	DepthStats          DepthStats      `json:"depth_stats"`
	OverlayPath         string          `json:"overlay_path,omitempty"`
}

// CalibrationTag 标定方式标签, 例如 floor_plane_bed_height_0.32m
func CalibrationTag(bedHeight float64) string {
	return "floor_plane_bed_height_" + strconv.FormatFloat(bedHeight, 'f', -1, 64) + "m"
}

// round 四舍五入到 n 位小数
func round(v float64, n int) float64 {
	p := math.Pow10(n)
	return math.Round(v*p) / p
}

func roundBox(b grid.BoundingBox) [4]float64 {
	var out [4]float64
	for i, v := range b {
		out[i] = round(v, 4)
	}
	return out
}

// newDepthStats 整图 min/max 与车斗内均值
func newDepthStats(depthMap *mat.Dense, e *estimate.Estimate) DepthStats {
	return DepthStats{
		Min:        round(grid.Min(depthMap), 4),
		Max:        round(grid.Max(depthMap), 4),
		MeanInBed:  round(grid.Mean(e.Crop), 4),
		FloorFront: round(e.FloorFront, 4),
		FloorRear:  round(e.FloorRear, 4),
	}
}

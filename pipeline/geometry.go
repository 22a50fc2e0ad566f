package pipeline

import (
	"context"
	"errors"
	"fmt"
	"github.com/getcharzp/go-cargo/estimate"
	"github.com/getcharzp/go-cargo/locator"
	"github.com/getcharzp/go-cargo/overlay"
	"github.com/up-zero/gotool/imageutil"
	"os"
	"path/filepath"
	"strings"
)

// MethodGeometry 后板几何法的方法标识
const MethodGeometry = "box-overlay"

// GeometryAnalyzer 后板几何与装载比例分析
type GeometryAnalyzer interface {
	Geometry(ctx context.Context, imagePath string) (locator.Geometry, error)
	Fill(ctx context.Context, imagePath string) (locator.Fill, error)
}

// GeometryResult 后板几何法的结果
type GeometryResult struct {
	Image             string     `json:"image"`
	Method            string     `json:"method"`
	TruckClass        string     `json:"truck_class"`
	MaterialType      string     `json:"material_type"`
	PlateBox          [4]float64 `json:"plate_box"`
	TailgateTopY      float64    `json:"tailgate_top_y"`
	TailgateBottomY   float64    `json:"tailgate_bottom_y"`
	CargoTopY         float64    `json:"cargo_top_y"`
	BedHeightM        float64    `json:"bed_height_m"`
	HeightM           float64    `json:"height_m"`
	FillRatioL        float64    `json:"fill_ratio_l"`
	FillRatioW        float64    `json:"fill_ratio_w"`
	PackingDensity    float64    `json:"packing_density"`
	ShapeFactor       float64    `json:"shape_factor"`
	EstimatedVolumeM3 float64    `json:"estimated_volume_m3"`
	EstimatedTonnage  float64    `json:"estimated_tonnage"`
	Density           float64    `json:"density"`
	Reasoning         string     `json:"reasoning"`
	OverlayPath       string     `json:"overlay_path,omitempty"`
}

// NewGeometryRunner 创建只使用后板几何法的流水线, 不需要深度模型
func NewGeometryRunner(analyzer GeometryAnalyzer, opts ...Option) (*Runner, error) {
	if analyzer == nil {
		return nil, errors.New("几何分析器不能为空")
	}
	r := newRunner(opts...)
	r.analyzer = analyzer
	if err := r.check(); err != nil {
		return nil, err
	}
	return r, nil
}

// RunGeometry 以后板高度为比例尺估计体积与重量
//
// 堆高 = (后板下沿 - 货物最高点) x 后板高度 / (后板下沿 - 后板上沿),
// 体积 = 车斗长 x 宽 x 堆高 x 长度比例 x 宽度比例 x ShapeFactor。
// 分析结果给出装填率时使用该值, 否则使用请求中的装填率。
func (r *Runner) RunGeometry(ctx context.Context, req Request) (*GeometryResult, error) {
	if r.analyzer == nil {
		return nil, errors.New("未配置几何分析器")
	}
	req = req.withDefaults()
	log := r.logger.With("image", req.ImagePath, "method", MethodGeometry)

	truck, density, err := r.validate(req)
	if err != nil {
		return nil, err
	}

	g, err := r.analyzer.Geometry(ctx, req.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("后板几何识别失败: %w", err)
	}
	height, err := estimate.TailgateHeight(g.TailgateTopY, g.TailgateBottomY, g.CargoTopY,
		truck.BedHeight, r.config.Estimate.MaxCargoHeight)
	if err != nil {
		return nil, err
	}
	log.Infow("后板几何",
		"plate", g.PlateBox, "tailgate_top", g.TailgateTopY, "tailgate_bottom", g.TailgateBottomY,
		"cargo_top", g.CargoTopY, "height_m", height)

	fill, err := r.analyzer.Fill(ctx, req.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("装载比例估计失败: %w", err)
	}
	packing := req.PackingDensity
	if fill.PackingDensity > 0 {
		packing = fill.PackingDensity
	}
	log.Infow("装载比例", "fill_l", fill.RatioL, "fill_w", fill.RatioW, "packing", packing)

	volume := estimate.BoxVolume(truck.BedLength, truck.BedWidth, height, fill.RatioL, fill.RatioW)
	tonnage := estimate.Tonnage(volume, density, packing)
	log.Infow("估计结果", "volume_m3", volume, "tonnage", tonnage)

	res := &GeometryResult{
		Image:             req.ImagePath,
		Method:            MethodGeometry,
		TruckClass:        req.TruckClass,
		MaterialType:      req.Material,
		PlateBox:          roundBox(g.PlateBox),
		TailgateTopY:      round(g.TailgateTopY, 4),
		TailgateBottomY:   round(g.TailgateBottomY, 4),
		CargoTopY:         round(g.CargoTopY, 4),
		BedHeightM:        truck.BedHeight,
		HeightM:           round(height, 3),
		FillRatioL:        round(fill.RatioL, 3),
		FillRatioW:        round(fill.RatioW, 3),
		PackingDensity:    round(packing, 3),
		ShapeFactor:       estimate.ShapeFactor,
		EstimatedVolumeM3: round(volume, 4),
		EstimatedTonnage:  round(tonnage, 2),
		Density:           density,
		Reasoning:         fill.Reasoning,
	}

	if r.config.OverlayDir != "" {
		p, err := r.saveMarkers(req.ImagePath, g, res)
		if err != nil {
			log.Warnw("叠加图保存失败", "error", err)
		} else {
			res.OverlayPath = p
		}
	}
	return res, nil
}

// saveMarkers 保存到 OverlayDir/<图片名>_markers.png
func (r *Runner) saveMarkers(imagePath string, g locator.Geometry, res *GeometryResult) (string, error) {
	img, err := imageutil.Open(imagePath)
	if err != nil {
		return "", err
	}
	b := img.Bounds()
	if b.Empty() {
		return "", errors.New("图片尺寸为空")
	}
	if err := os.MkdirAll(r.config.OverlayDir, 0o755); err != nil {
		return "", err
	}

	h := float64(b.Dy())
	scene := overlay.MarkerScene{
		Plate:          g.PlateBox.ToPixels(b.Dx(), b.Dy()),
		TailgateTop:    int(g.TailgateTopY * h),
		TailgateBottom: int(g.TailgateBottomY * h),
		BedHeight:      res.BedHeightM,
		Markers:        overlay.DefaultMarkers(),
		Lines: []string{
			fmt.Sprintf("%s  %s  x%.2f", res.TruckClass, res.MaterialType, res.PackingDensity),
			fmt.Sprintf("height %.3f m  fill %.2f x %.2f", res.HeightM, res.FillRatioL, res.FillRatioW),
			fmt.Sprintf("volume %.3f m3  tonnage %.2f t", res.EstimatedVolumeM3, res.EstimatedTonnage),
		},
	}

	name := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath)) + "_markers.png"
	p := filepath.Join(r.config.OverlayDir, name)
	if err := r.renderer.Save(p, r.renderer.RenderMarkers(img, scene)); err != nil {
		return "", err
	}
	return p, nil
}

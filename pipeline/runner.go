// Package pipeline 串联深度估计、区域定位与体积估计, 输出单张图片的结果
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"github.com/getcharzp/go-cargo/catalog"
	"github.com/getcharzp/go-cargo/estimate"
	"github.com/getcharzp/go-cargo/grid"
	"github.com/getcharzp/go-cargo/locator"
	"github.com/getcharzp/go-cargo/overlay"
	"github.com/up-zero/gotool/imageutil"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"image"
	"os"
	"path/filepath"
	"strings"
)

// DepthEstimator 相对深度估计, 返回与图片同尺寸的矩阵 (数值越大越近)
type DepthEstimator interface {
	Predict(img image.Image) (*mat.Dense, error)
}

// RegionLocator 车斗/车牌区域定位
type RegionLocator interface {
	Locate(ctx context.Context, imagePath string) (locator.Regions, error)
}

// Runner 流水线, 可被多个 goroutine 同时使用
type Runner struct {
	depth    DepthEstimator
	analyzer GeometryAnalyzer
	locator  RegionLocator
	catalog  *catalog.Catalog
	renderer *overlay.Renderer
	config   Config
	logger   *zap.SugaredLogger
}

// Option Runner 的可选参数
type Option func(*Runner)

// WithLocator 设置区域定位器, 未设置时始终使用默认车斗框
func WithLocator(l RegionLocator) Option {
	return func(r *Runner) { r.locator = l }
}

// WithCatalog 设置车型与材料表, 默认使用内置表
func WithCatalog(c *catalog.Catalog) Option {
	return func(r *Runner) { r.catalog = c }
}

// WithConfig 设置流水线参数
func WithConfig(cfg Config) Option {
	return func(r *Runner) { r.config = cfg }
}

// WithRenderer 设置叠加图绘制器, 仅在 Config.OverlayDir 非空时使用
func WithRenderer(renderer *overlay.Renderer) Option {
	return func(r *Runner) { r.renderer = renderer }
}

// WithLogger 设置日志
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner 创建流水线
func NewRunner(depth DepthEstimator, opts ...Option) (*Runner, error) {
	if depth == nil {
		return nil, errors.New("深度估计器不能为空")
	}
	r := newRunner(opts...)
	r.depth = depth
	if err := r.check(); err != nil {
		return nil, err
	}
	return r, nil
}

func newRunner(opts ...Option) *Runner {
	r := &Runner{
		catalog: catalog.Default(),
		config:  DefaultConfig(),
		logger:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) check() error {
	if r.config.OverlayDir != "" && r.renderer == nil {
		return errors.New("设置了叠加图目录但没有绘制器")
	}
	return nil
}

// Run 估计单张图片的体积与重量
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if r.depth == nil {
		return nil, errors.New("未配置深度估计器")
	}
	req = req.withDefaults()
	log := r.logger.With("image", req.ImagePath)

	truck, density, err := r.validate(req)
	if err != nil {
		return nil, err
	}

	img, err := imageutil.Open(req.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: 打开图片失败: %w", ErrInput, err)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: 图片尺寸为空", ErrInput)
	}

	// 深度
	depthMap, err := r.depth.Predict(img)
	if err != nil {
		return nil, fmt.Errorf("深度估计失败: %w", err)
	}
	if rows, cols := depthMap.Dims(); rows != b.Dy() || cols != b.Dx() {
		return nil, fmt.Errorf("深度图尺寸 %dx%d 与图片 %dx%d 不一致", cols, rows, b.Dx(), b.Dy())
	}
	log.Infow("深度图",
		"width", b.Dx(), "height", b.Dy(),
		"min", grid.Min(depthMap), "max", grid.Max(depthMap), "mean", grid.Mean(depthMap))

	// 区域
	regions := r.locate(ctx, log, req.ImagePath)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bedBox, source := grid.DefaultBedBox(), BoxFromFallback
	if regions.BedBox != nil {
		bedBox, source = *regions.BedBox, BoxFromLocator
	} else {
		log.Infow("未检测到车斗, 使用默认车斗框", "bed_box", bedBox)
	}
	px := bedBox.ToPixels(b.Dx(), b.Dy())
	log.Infow("车斗框", "normalized", bedBox, "pixels", px.Array(), "source", source)

	// 体积
	e, err := estimate.Run(depthMap, px, truck, r.config.Estimate)
	if err != nil {
		return nil, fmt.Errorf("体积估计失败: %w", err)
	}
	rows := float64(max(1, e.Floor.RawMatrix().Rows-1))
	log.Infow("底板基准面",
		"front", e.FloorFront, "rear", e.FloorRear, "gradient", (e.FloorRear-e.FloorFront)/rows)
	if !e.SignConsistent {
		log.Warnw("基准面前部比后部更近, 深度符号可能相反", "front", e.FloorFront, "rear", e.FloorRear)
	}
	cal := e.Calibration
	log.Infow("高度标定",
		"regime", cal.Regime, "meters_per_unit", cal.MetersPerDepthUnit, "floor_offset", cal.FloorOffset,
		"delta_min", cal.DeltaMin, "delta_p5", cal.P5, "delta_p50", cal.DeltaP50,
		"delta_p95", cal.P95, "delta_max", cal.DeltaMax)
	log.Infow("货物高度",
		"min", grid.Min(e.HeightMap), "max", grid.Max(e.HeightMap), "mean", e.MeanHeight,
		"p50", grid.Median(grid.Values(e.HeightMap)))

	tonnage := estimate.Tonnage(e.Volume, density, req.PackingDensity)
	log.Infow("估计结果", "volume_m3", e.Volume, "tonnage", tonnage)

	res := &Result{
		Image:               req.ImagePath,
		Method:              Method,
		Calibration:         CalibrationTag(truck.BedHeight),
		CalibrationRegime:   cal.Regime,
		TruckClass:          req.TruckClass,
		MaterialType:        req.Material,
		PackingDensity:      req.PackingDensity,
		Density:             density,
		BedBoxNormalized:    roundBox(bedBox),
		BedBoxSource:        source,
		BedBoxPixels:        px.Array(),
		BedHeightM:          truck.BedHeight,
		DepthScale:          round(cal.MetersPerDepthUnit, 5),
		FloorFront:          round(e.FloorFront, 4),
		FloorRear:           round(e.FloorRear, 4),
		AvgCargoHeightM:     round(e.MeanHeight, 4),
		EstimatedVolumeM3:   round(e.Volume, 4),
		EstimatedTonnage:    round(tonnage, 2),
		DepthSignConsistent: e.SignConsistent,
		DepthStats:          newDepthStats(depthMap, e),
	}
	if regions.PlateBox != nil {
		plate := roundBox(*regions.PlateBox)
		res.PlateBoxNormalized = &plate
	}

	if r.config.OverlayDir != "" {
		p, err := r.saveOverlay(img, regions, e, res)
		if err != nil {
			log.Warnw("叠加图保存失败", "error", err)
		} else {
			res.OverlayPath = p
		}
	}
	return res, nil
}

// validate 查表并校验装填率
func (r *Runner) validate(req Request) (catalog.TruckSpec, float64, error) {
	if req.ImagePath == "" {
		return catalog.TruckSpec{}, 0, fmt.Errorf("%w: 图片路径为空", ErrInput)
	}
	if _, err := os.Stat(req.ImagePath); err != nil {
		return catalog.TruckSpec{}, 0, fmt.Errorf("%w: 图片不存在: %s", ErrInput, req.ImagePath)
	}
	truck, err := r.catalog.Truck(req.TruckClass)
	if err != nil {
		return catalog.TruckSpec{}, 0, fmt.Errorf("%w: %w", ErrInput, err)
	}
	density, err := r.catalog.Density(req.Material)
	if err != nil {
		return catalog.TruckSpec{}, 0, fmt.Errorf("%w: %w", ErrInput, err)
	}
	if !(req.PackingDensity >= MinPackingDensity && req.PackingDensity <= MaxPackingDensity) {
		return catalog.TruckSpec{}, 0, fmt.Errorf("%w: 装填率 %v 超出范围 [%v, %v]",
			ErrInput, req.PackingDensity, MinPackingDensity, MaxPackingDensity)
	}
	return truck, density, nil
}

// locate 定位失败只记录日志, 返回空结果
func (r *Runner) locate(ctx context.Context, log *zap.SugaredLogger, imagePath string) locator.Regions {
	if r.locator == nil {
		return locator.Regions{}
	}
	regions, err := r.locator.Locate(ctx, imagePath)
	if err != nil {
		log.Warnw("区域定位失败", "error", err)
		return locator.Regions{}
	}
	for key, reason := range regions.Dropped {
		log.Warnw("丢弃非法矩形框", "key", key, "reason", reason)
	}
	if regions.PlateBox != nil {
		log.Infow("车牌框", "normalized", *regions.PlateBox)
	}
	return regions
}

// saveOverlay 保存到 OverlayDir/<图片名>_overlay.png
func (r *Runner) saveOverlay(img image.Image, regions locator.Regions, e *estimate.Estimate, res *Result) (string, error) {
	if err := os.MkdirAll(r.config.OverlayDir, 0o755); err != nil {
		return "", err
	}
	b := img.Bounds()
	scene := overlay.Scene{
		Bed:       e.Box,
		HeightMap: e.HeightMap,
		Lines: []string{
			fmt.Sprintf("%s  %s  x%.2f", res.TruckClass, res.MaterialType, res.PackingDensity),
			fmt.Sprintf("regime %s  scale %.5f m/unit", res.CalibrationRegime, res.DepthScale),
			fmt.Sprintf("avg height %.3f m", res.AvgCargoHeightM),
			fmt.Sprintf("volume %.3f m3  tonnage %.2f t", res.EstimatedVolumeM3, res.EstimatedTonnage),
		},
	}
	if regions.PlateBox != nil {
		plate := regions.PlateBox.ToPixels(b.Dx(), b.Dy())
		scene.Plate = &plate
	}

	name := strings.TrimSuffix(filepath.Base(res.Image), filepath.Ext(res.Image)) + "_overlay.png"
	p := filepath.Join(r.config.OverlayDir, name)
	if err := r.renderer.Save(p, r.renderer.Render(img, scene)); err != nil {
		return "", err
	}
	return p, nil
}

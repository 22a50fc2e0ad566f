// Package overlay 在原图上绘制车斗框、车牌框、高度着色与结果摘要, 用于人工核对
package overlay

import (
	"fmt"
	"github.com/getcharzp/go-cargo"
	"github.com/getcharzp/go-cargo/grid"
	"github.com/up-zero/gotool/imageutil"
	"gonum.org/v1/gonum/mat"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"
)

// Scene 深度法需要绘制的内容 (像素坐标)
type Scene struct {
	Bed       grid.PixelBox
	Plate     *grid.PixelBox
	HeightMap *mat.Dense // 与 Bed 同尺寸, 可为 nil
	Lines     []string   // 左上角的摘要文本
}

// Renderer 叠加图绘制器, 可并发使用
type Renderer struct {
	mu     sync.Mutex // 保护 drawer
	drawer *cargo.TextDrawer
	config Config
}

// NewRenderer 创建绘制器
func NewRenderer(cfg Config) (*Renderer, error) {
	d := DefaultConfig()
	if cfg.FontSize <= 0 {
		cfg.FontSize = d.FontSize
	}
	if cfg.BoxThickness <= 0 {
		cfg.BoxThickness = d.BoxThickness
	}
	if !(cfg.MaxHeight > 0) {
		cfg.MaxHeight = d.MaxHeight
	}
	if cfg.Quality <= 0 {
		cfg.Quality = d.Quality
	}
	for _, c := range []struct{ dst, def *color.RGBA }{
		{&cfg.BedColor, &d.BedColor},
		{&cfg.PlateColor, &d.PlateColor},
		{&cfg.TextColor, &d.TextColor},
		{&cfg.LabelColor, &d.LabelColor},
		{&cfg.TailgateColor, &d.TailgateColor},
		{&cfg.FloorColor, &d.FloorColor},
	} {
		if *c.dst == (color.RGBA{}) {
			*c.dst = *c.def
		}
	}

	drawer, err := cargo.NewTextDrawer(cfg.FontPath)
	if err != nil {
		return nil, err
	}
	if err := drawer.SetSize(cfg.FontSize); err != nil {
		_ = drawer.Close()
		return nil, err
	}
	return &Renderer{drawer: drawer, config: cfg}, nil
}

// Render 返回绘制后的新图像, 不修改 img
func (r *Renderer) Render(img image.Image, s Scene) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	if s.HeightMap != nil {
		r.tint(dst, s.Bed, s.HeightMap)
	}

	avoid := []image.Rectangle{s.Bed.Rect().Inset(-r.config.BoxThickness)}
	if s.Plate != nil {
		avoid = append(avoid, s.Plate.Rect().Inset(-r.config.BoxThickness))
	}
	r.mu.Lock()
	r.drawLines(dst, s.Lines, avoid)
	r.mu.Unlock()

	// 边框最后绘制, 不会被文字遮挡
	imageutil.DrawThickRectOutline(dst, s.Bed.Rect(), r.config.BedColor, r.config.BoxThickness)
	if s.Plate != nil {
		imageutil.DrawThickRectOutline(dst, s.Plate.Rect(), r.config.PlateColor, r.config.BoxThickness)
	}
	return dst
}

// drawLines 逐行绘制摘要, 调用方持有 r.mu
func (r *Renderer) drawLines(dst *image.RGBA, lines []string, avoid []image.Rectangle) {
	if len(lines) == 0 {
		return
	}
	var size image.Point
	for i, line := range lines {
		ls := r.drawer.LabelSize(line)
		size.X = max(size.X, ls.X)
		size.Y += ls.Y
		if i > 0 {
			size.Y += lineGap
		}
	}
	at := labelOrigin(dst.Bounds(), avoid, size)
	for _, line := range lines {
		rect := r.drawer.DrawLabel(dst, line, at.X, at.Y, r.config.TextColor, r.config.LabelColor)
		at.Y = rect.Max.Y + lineGap
	}
}

// 文字块与图像边缘、行与行之间的间距
const (
	margin  = 4
	lineGap = 2
)

// labelOrigin 选择文字块左上角: 依次尝试左上角、各区域下方、右上角,
// 取第一个完全在图内且不与 avoid 相交的位置, 都不满足时退回左上角
func labelOrigin(bounds image.Rectangle, avoid []image.Rectangle, size image.Point) image.Point {
	candidates := []image.Point{bounds.Min.Add(image.Pt(margin, margin))}
	for _, a := range avoid {
		candidates = append(candidates, image.Pt(bounds.Min.X+margin, a.Max.Y+margin))
	}
	candidates = append(candidates, image.Pt(bounds.Max.X-size.X-margin, bounds.Min.Y+margin))

	for _, c := range candidates {
		rect := image.Rectangle{Min: c, Max: c.Add(size)}
		if !rect.In(bounds) {
			continue
		}
		free := true
		for _, a := range avoid {
			if rect.Overlaps(a) {
				free = false
				break
			}
		}
		if free {
			return c
		}
	}
	return candidates[0]
}

// tint 按高度叠加颜色 (蓝 -> 绿 -> 红)
func (r *Renderer) tint(dst *image.RGBA, box grid.PixelBox, heightMap *mat.Dense) {
	rows, cols := heightMap.Dims()
	a := uint32(r.config.TintAlpha)
	for y := 0; y < min(rows, box.Dy()); y++ {
		for x := 0; x < min(cols, box.Dx()); x++ {
			px, py := box.X1+x, box.Y1+y
			if !(image.Point{X: px, Y: py}).In(dst.Rect) {
				continue
			}
			c := HeightColor(heightMap.At(y, x), r.config.MaxHeight)
			i := dst.PixOffset(px, py)
			dst.Pix[i+0] = uint8((uint32(dst.Pix[i+0])*(255-a) + uint32(c.R)*a) / 255)
			dst.Pix[i+1] = uint8((uint32(dst.Pix[i+1])*(255-a) + uint32(c.G)*a) / 255)
			dst.Pix[i+2] = uint8((uint32(dst.Pix[i+2])*(255-a) + uint32(c.B)*a) / 255)
		}
	}
}

// HeightColor 高度到颜色的映射, 0 为蓝, maxHeight/2 为绿, maxHeight 为红
func HeightColor(h, maxHeight float64) color.RGBA {
	t := h / maxHeight
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	t = min(t, 1)
	return color.RGBA{
		R: uint8(math.Round(255 * t)),
		G: uint8(math.Round(255 * (1 - math.Abs(2*t-1)))),
		B: uint8(math.Round(255 * (1 - t))),
		A: 255,
	}
}

// Save 保存叠加图, 格式由扩展名决定
func (r *Renderer) Save(path string, img image.Image) error {
	if err := imageutil.Save(path, img, r.config.Quality); err != nil {
		return fmt.Errorf("保存叠加图失败: %w", err)
	}
	return nil
}

// Close 释放字体资源
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drawer.Close()
}

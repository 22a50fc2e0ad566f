package overlay

import (
	"fmt"
	"github.com/getcharzp/go-cargo/grid"
	"github.com/up-zero/gotool/imageutil"
	"image"
	"image/color"
	"image/draw"
)

// PlateWidth 大型车牌实际宽度 (米), 后板不可用时作为比例尺
const PlateWidth = 0.440

// 高度标尺的线型
const (
	dashLength    = 12
	markerWidth   = 3
	markerSpread  = 2.5 // 标尺半宽 = 车牌宽 x 2.5
	tailgateInset = 10  // 后板框比车牌左右各宽 10 像素
)

// Marker 高度标尺上的一条刻度
type Marker struct {
	Height float64 // 高出底板的高度 (米)
	Label  string
	Color  color.RGBA
}

// DefaultMarkers 0.10m 到 0.60m 的刻度, 0.30m 为 4t 车后板, 0.60m 为铰链
func DefaultMarkers() []Marker {
	gray := color.RGBA{R: 136, G: 136, B: 136, A: 255}
	return []Marker{
		{0.10, "0.10m", gray},
		{0.20, "0.20m", gray},
		{0.30, "0.30m tailgate", color.RGBA{R: 0, G: 255, B: 0, A: 255}},
		{0.40, "0.40m", color.RGBA{R: 255, G: 255, B: 0, A: 255}},
		{0.50, "0.50m", color.RGBA{R: 255, G: 165, B: 0, A: 255}},
		{0.60, "0.60m hinge", color.RGBA{R: 255, G: 0, B: 0, A: 255}},
	}
}

// MarkerScene 后板几何法需要绘制的内容 (像素坐标)
type MarkerScene struct {
	Plate          grid.PixelBox
	TailgateTop    int     // 后板上沿
	TailgateBottom int     // 后板下沿 (底板)
	BedHeight      float64 // 后板高度 (米)
	Markers        []Marker
	Lines          []string // 摘要文本
}

// MarkerScale 标尺的比例 (米/像素) 与底板所在的行
//
// 后板上下沿有效时以后板高度为准, 底板取后板下沿;
// 否则以车牌宽度为准, 底板取车牌上沿。车牌宽度为 0 时 ok 为 false。
func MarkerScale(s MarkerScene) (metersPerPixel float64, floorY int, ok bool) {
	plateW := s.Plate.Dx()
	if plateW <= 0 {
		return 0, 0, false
	}
	if tg := s.TailgateBottom - s.TailgateTop; tg > 0 && s.BedHeight > 0 {
		return s.BedHeight / float64(tg), s.TailgateBottom, true
	}
	return PlateWidth / float64(plateW), s.Plate.Y1, true
}

// RenderMarkers 绘制车牌、后板与水平高度标尺, 返回新图像
func (r *Renderer) RenderMarkers(img image.Image, s MarkerScene) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	mpp, floorY, ok := MarkerScale(s)
	if !ok {
		return dst
	}
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	cx := (s.Plate.X1 + s.Plate.X2) / 2
	half := int(float64(s.Plate.Dx()) * markerSpread)
	mx1, mx2 := max(0, cx-half), min(w, cx+half)

	r.mu.Lock()
	defer r.mu.Unlock()

	area := image.Rect(mx1, floorY, mx2, floorY+1)
	for _, m := range s.Markers {
		y := int(float64(floorY) - m.Height/mpp)
		if y < 0 || y >= h {
			continue
		}
		dashedLine(dst, mx1, mx2, y, m.Color)
		area = area.Union(r.markerLabel(dst, m.Label, mx2, y, m.Color))
	}

	fill(dst, image.Rect(mx1, floorY-1, mx2, floorY+1), r.config.FloorColor)
	area = area.Union(r.markerLabel(dst, "floor 0m", mx2, floorY, r.config.FloorColor))

	tailgate := image.Rect(s.Plate.X1-tailgateInset, s.TailgateTop, s.Plate.X2+tailgateInset, s.TailgateBottom)
	avoid := []image.Rectangle{area, s.Plate.Rect().Inset(-r.config.BoxThickness)}
	if s.TailgateBottom > s.TailgateTop {
		avoid = append(avoid, tailgate.Inset(-r.config.BoxThickness))
	}
	r.drawLines(dst, s.Lines, avoid)

	imageutil.DrawThickRectOutline(dst, s.Plate.Rect(), r.config.PlateColor, r.config.BoxThickness)
	if s.TailgateBottom > s.TailgateTop {
		imageutil.DrawThickRectOutline(dst, tailgate, r.config.TailgateColor, r.config.BoxThickness)
	}
	return dst
}

// markerLabel 刻度文字画在标尺右侧, 垂直居中
func (r *Renderer) markerLabel(dst *image.RGBA, text string, x, y int, c color.RGBA) image.Rectangle {
	text = fmt.Sprintf(" %s ", text)
	size := r.drawer.LabelSize(text)
	return r.drawer.DrawLabel(dst, text, x+margin, y-size.Y/2, c, r.config.LabelColor)
}

// dashedLine 水平虚线, 线段与间隔等长
func dashedLine(dst *image.RGBA, x1, x2, y int, c color.RGBA) {
	for x := x1; x < x2; x += 2 * dashLength {
		fill(dst, image.Rect(x, y-markerWidth/2, min(x+dashLength, x2), y-markerWidth/2+markerWidth), c)
	}
}

func fill(dst *image.RGBA, rect image.Rectangle, c color.RGBA) {
	draw.Draw(dst, rect, image.NewUniform(c), image.Point{}, draw.Src)
}

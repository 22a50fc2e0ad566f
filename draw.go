package cargo

import (
	"fmt"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"image"
	"image/color"
	"image/draw"
	"os"
)

// TextDrawer 文本绘制工具
type TextDrawer struct {
	font     *opentype.Font
	face     font.Face
	fontSize float64
}

// NewTextDrawer 从字体文件创建文本绘制工具
//
// # Params:
//
//	fontPath: 字体路径, 为空时使用内置的 Go Regular 字体
func NewTextDrawer(fontPath string) (*TextDrawer, error) {
	if fontPath == "" {
		return NewTextDrawerFromBytes(goregular.TTF)
	}
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("打开字体文件失败：%w", err)
	}
	return NewTextDrawerFromBytes(fontBytes)
}

// NewTextDrawerFromBytes 从字体数据创建文本绘制工具
func NewTextDrawerFromBytes(fontBytes []byte) (*TextDrawer, error) {
	ttFont, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("解析字体文件失败：%w", err)
	}

	d := &TextDrawer{font: ttFont}
	if err := d.SetSize(12); err != nil {
		return nil, err
	}
	return d, nil
}

// SetSize 动态调整字体大小
//
// # Params:
//
//	fontSize: 字体大小
func (d *TextDrawer) SetSize(fontSize float64) error {
	if d.face != nil && d.fontSize == fontSize {
		return nil
	}

	nf, err := opentype.NewFace(d.font, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("创建字体 Face 失败：%w", err)
	}

	// 释放旧 Face
	if d.face != nil {
		_ = d.face.Close()
	}
	d.face = nf
	d.fontSize = fontSize
	return nil
}

// LineHeight 当前字号的行高 (像素)
func (d *TextDrawer) LineHeight() int {
	return d.face.Metrics().Height.Ceil()
}

// Measure 文本宽度 (像素)
func (d *TextDrawer) Measure(text string) int {
	return font.MeasureString(d.face, text).Ceil()
}

// DrawText 绘制文本, (x, y) 为基线起点
//
// # Params:
//
//	img: 被绘制的图像
//	text: 绘制的文本
//	x, y: 绘制的坐标
//	c: 绘制的颜色
func (d *TextDrawer) DrawText(img draw.Image, text string, x, y int, c color.Color) {
	fd := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: d.face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	fd.DrawString(text)
}

// labelPad 文字底框的内边距
const labelPad = 3

// LabelSize DrawLabel 底框的宽高
func (d *TextDrawer) LabelSize(text string) image.Point {
	return image.Pt(d.Measure(text)+2*labelPad, d.LineHeight()+2*labelPad)
}

// DrawLabel 在纯色底框上绘制文本, (x, y) 为底框左上角
//
// 返回底框所占区域, 便于逐行排列
func (d *TextDrawer) DrawLabel(img draw.Image, text string, x, y int, fg, bg color.Color) image.Rectangle {
	const pad = labelPad
	m := d.face.Metrics()
	rect := image.Rectangle{Min: image.Pt(x, y)}
	rect.Max = rect.Min.Add(d.LabelSize(text))
	draw.Draw(img, rect, image.NewUniform(bg), image.Point{}, draw.Over)
	d.DrawText(img, text, x+pad, y+pad+m.Ascent.Ceil(), fg)
	return rect
}

// Close 释放资源
func (d *TextDrawer) Close() error {
	if d.face == nil {
		return nil
	}
	err := d.face.Close()
	d.face = nil
	return err
}

package overlay

import "image/color"

// Config 叠加图参数
type Config struct {
	FontPath     string  // 字体路径, 为空时使用内置字体
	FontSize     float64 // 默认 16
	BoxThickness int     // 边框线宽 (默认 3)
	TintAlpha    uint8   // 高度着色透明度 (默认 110)
	MaxHeight    float64 // 着色满量程 (米, 默认 0.80)
	Quality      int     // JPEG 质量 (默认 90)

	BedColor   color.RGBA
	PlateColor color.RGBA
	TextColor  color.RGBA
	LabelColor color.RGBA // 文字底色

	TailgateColor color.RGBA // 后板上下沿
	FloorColor    color.RGBA // 底板基准线
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		FontSize:     16,
		BoxThickness: 3,
		TintAlpha:    110,
		MaxHeight:    0.80,
		Quality:      90,
		BedColor:     color.RGBA{R: 255, G: 64, B: 0, A: 255},
		PlateColor:   color.RGBA{R: 0, G: 200, B: 255, A: 255},
		TextColor:    color.RGBA{R: 255, G: 255, B: 255, A: 255},
		LabelColor:   color.RGBA{R: 0, G: 0, B: 0, A: 180},

		TailgateColor: color.RGBA{R: 0, G: 255, B: 255, A: 255},
		FloorColor:    color.RGBA{R: 0, G: 0, B: 255, A: 255},
	}
}

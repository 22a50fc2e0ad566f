package pipeline

import (
	"errors"
	"github.com/getcharzp/go-cargo/estimate"
	"runtime"
)

// ErrInput 输入错误: 图片不可读、未知车型、未知材料或装填率超出范围
var ErrInput = errors.New("输入错误")

const (
	DefaultTruckClass     = "4t"
	DefaultMaterial       = "As殻"
	DefaultPackingDensity = 0.7

	MinPackingDensity = 0.5
	MaxPackingDensity = 0.9
)

// Request 单张图片的估计请求
type Request struct {
	ImagePath      string
	TruckClass     string  // 默认 4t
	Material       string  // 默认 As殻
	PackingDensity float64 // [0.5, 0.9], 默认 0.7
}

// withDefaults 补齐空字段
func (r Request) withDefaults() Request {
	if r.TruckClass == "" {
		r.TruckClass = DefaultTruckClass
	}
	if r.Material == "" {
		r.Material = DefaultMaterial
	}
	if r.PackingDensity == 0 {
		r.PackingDensity = DefaultPackingDensity
	}
	return r
}

// Config 流水线参数
type Config struct {
	Estimate   estimate.Config
	Workers    int    // 批量处理的并发数, 默认 CPU 核心数
	OverlayDir string // 非空时保存叠加图
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Estimate: estimate.DefaultConfig(),
		Workers:  runtime.NumCPU(),
	}
}

package detect

import (
	"github.com/getcharzp/go-cargo"
	"image"
)

// Config 检测引擎的初始化参数
type Config struct {
	ModelPath          string // ONNX 模型路径
	OnnxRuntimeLibPath string // ONNX Runtime 动态库路径

	// 推理参数
	ConfThreshold float32 // 置信度阈值 (默认 0.35)

	// 模型参数
	InputSize    int // 默认 640
	BedClassID   int // 车斗类别 (默认 0)
	PlateClassID int // 车牌类别 (默认 1), 负数表示不检测车牌

	// 可选参数
	UseCuda           bool // (可选) 是否启用 CUDA
	NumThreads        int  // (可选) ONNX 线程数, 默认由CPU核心数决定
	EnableCpuMemArena bool // (可选) 是否开启 ONNX 内存池
}

// DetResult 目标检测结果
type DetResult struct {
	ClassID int
	Score   float32
	Box     image.Rectangle // 原图像素坐标
}

// DefaultConfig 默认配置, 模型为以车斗/车牌两类训练的 YOLO26 (端到端输出 [1, 300, 6])
func DefaultConfig() Config {
	return Config{
		ModelPath:          "./detect_weights/yolo26s-truckbed.onnx",
		OnnxRuntimeLibPath: cargo.DefaultLibraryPath(),
		ConfThreshold:      0.35,
		InputSize:          640,
		BedClassID:         0,
		PlateClassID:       1,
	}
}

// imageParams 图片尺寸信息
type imageParams struct {
	origW, origH int
	scale        float32
}

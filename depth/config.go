package depth

import (
	"github.com/getcharzp/go-cargo"
)

// Config 深度引擎的初始化参数
type Config struct {
	ModelPath          string // ONNX 模型路径
	OnnxRuntimeLibPath string // ONNX Runtime 动态库路径

	// 模型参数
	InputSize  int    // 默认 518 (14 的倍数)
	InputName  string // 默认 pixel_values
	OutputName string // 默认 predicted_depth
	Mean       [3]float32
	Std        [3]float32

	// 可选参数
	UseCuda           bool // (可选) 是否启用 CUDA
	NumThreads        int  // (可选) ONNX 线程数, 默认由CPU核心数决定
	EnableCpuMemArena bool // (可选) 是否开启 ONNX 内存池
}

// DefaultConfig Depth Anything V2 Small 的默认配置
func DefaultConfig() Config {
	return Config{
		ModelPath:          "./depth_weights/depth_anything_v2_small.onnx",
		OnnxRuntimeLibPath: cargo.DefaultLibraryPath(),
		InputSize:          518,
		InputName:          "pixel_values",
		OutputName:         "predicted_depth",
		Mean:               [3]float32{0.485, 0.456, 0.406},
		Std:                [3]float32{0.229, 0.224, 0.225},
	}
}

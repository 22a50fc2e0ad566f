package cargo

import (
	"fmt"
	ort "github.com/getcharzp/onnxruntime_purego"
	"runtime"
	"sync"
)

// OnnxConfig 各推理引擎共用的 ONNX Runtime 配置
type OnnxConfig struct {
	OnnxEngine     *ort.Engine
	SessionOptions *ort.SessionOptions

	// 必填参数
	OnnxRuntimeLibPath string // onnxruntime.dll (或 .so, .dylib) 的路径
	// 可选参数
	UseCuda           bool // (可选) 是否启用 CUDA
	NumThreads        int  // (可选) ONNX 线程数, 默认由CPU核心数决定
	EnableCpuMemArena bool // (可选) 是否开启 ONNX 内存池
}

var (
	engine  *ort.Engine
	initErr error
	once    sync.Once
)

// New 初始化 ONNX 环境并创建会话选项
//
// 动态库在进程内只加载一次, 深度引擎与检测引擎共用同一个 Engine
func (cfg *OnnxConfig) New() error {
	if cfg.OnnxRuntimeLibPath == "" {
		return fmt.Errorf("OnnxRuntimeLibPath 不能为空")
	}
	once.Do(func() {
		engine, initErr = ort.NewEngine(cfg.OnnxRuntimeLibPath)
	})
	if initErr != nil {
		return fmt.Errorf("初始化 ONNX Runtime 环境失败: %w", initErr)
	}

	options, err := engine.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("创建会话选项失败: %w", err)
	}
	if cfg.NumThreads > 0 {
		if err := options.SetIntraOpNumThreads(int32(cfg.NumThreads)); err != nil {
			options.Destroy()
			return err
		}
	}
	// 未设置时保持 ONNX Runtime 默认 (开启)
	if cfg.EnableCpuMemArena {
		if err := options.SetCpuMemArena(true); err != nil {
			options.Destroy()
			return fmt.Errorf("设置内存池失败: %w", err)
		}
	}

	// 启用CUDA
	if cfg.UseCuda {
		if err := options.EnableCUDA(); err != nil {
			options.Destroy()
			return fmt.Errorf("启用 CUDA 失败: %w", err)
		}
	}

	cfg.OnnxEngine = engine
	cfg.SessionOptions = options
	return nil
}

// DefaultLibraryPath 根据运行时环境判断加载哪个库文件
func DefaultLibraryPath() string {
	baseDir := "./lib/"
	libName := "onnxruntime"

	if runtime.GOOS == "windows" {
		return baseDir + libName + ".dll"
	}

	var ext string
	switch runtime.GOOS {
	case "darwin":
		ext = "dylib"
	case "linux":
		ext = "so"
	default:
		return baseDir + libName + "_amd64.so"
	}

	// ./lib/onnxruntime_amd64.so, ./lib/onnxruntime_arm64.dylib ...
	return fmt.Sprintf("%s%s_%s.%s", baseDir, libName, runtime.GOARCH, ext)
}

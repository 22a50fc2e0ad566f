// Package detect 本地 YOLO26 车斗/车牌检测, 可替代外部分析服务作为区域定位器
package detect

import (
	"context"
	"fmt"
	"github.com/getcharzp/go-cargo"
	"github.com/getcharzp/go-cargo/locator"
	ort "github.com/getcharzp/onnxruntime_purego"
	"github.com/up-zero/gotool/convertutil"
	"github.com/up-zero/gotool/imageutil"
	"image"
)

// Engine YOLO26 truck-bed Engine
type Engine struct {
	session *ort.Session
	config  Config
}

// NewEngine 初始化检测引擎
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.InputSize <= 0 {
		cfg.InputSize = DefaultConfig().InputSize
	}

	oc := new(cargo.OnnxConfig)
	_ = convertutil.CopyProperties(cfg, oc)

	if err := oc.New(); err != nil {
		return nil, fmt.Errorf("初始化失败: %w", err)
	}
	defer oc.SessionOptions.Destroy()

	session, err := oc.OnnxEngine.NewSession(cfg.ModelPath, oc.SessionOptions)
	if err != nil {
		return nil, fmt.Errorf("创建 ONNX 会话失败: %w", err)
	}

	return &Engine{
		session: session,
		config:  cfg,
	}, nil
}

// Destroy 释放相关资源
func (e *Engine) Destroy() {
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
}

// Predict 执行检测推理
func (e *Engine) Predict(img image.Image) ([]DetResult, error) {
	// 预处理
	data, params := letterbox(img, e.config.InputSize)
	inputTensor, err := ort.NewTensor([]int64{1, 3, int64(e.config.InputSize), int64(e.config.InputSize)}, data)
	if err != nil {
		return nil, fmt.Errorf("预处理失败: %w", err)
	}
	defer inputTensor.Destroy()

	// 推理
	outputValues, err := e.session.Run(map[string]*ort.Value{
		"images": inputTensor,
	})
	if err != nil {
		return nil, fmt.Errorf("推理失败: %w", err)
	}
	outputValue := outputValues["output0"]
	if outputValue == nil {
		return nil, fmt.Errorf("缺少输出 output0")
	}
	defer outputValue.Destroy()

	// Output Shape: [1, 300, 6]
	out, err := ort.GetTensorData[float32](outputValue)
	if err != nil {
		return nil, fmt.Errorf("获取输出数据失败: %w", err)
	}

	return decode(out, params, e.config.ConfThreshold), nil
}

// Locate 实现 locator.Locator
func (e *Engine) Locate(ctx context.Context, imagePath string) (locator.Regions, error) {
	if err := ctx.Err(); err != nil {
		return locator.Regions{}, err
	}
	img, err := imageutil.Open(imagePath)
	if err != nil {
		return locator.Regions{}, fmt.Errorf("%w: 打开图片失败: %w", locator.ErrLocate, err)
	}
	results, err := e.Predict(img)
	if err != nil {
		return locator.Regions{}, fmt.Errorf("%w: %w", locator.ErrLocate, err)
	}
	b := img.Bounds()
	return selectRegions(results, b.Dx(), b.Dy(), e.config.BedClassID, e.config.PlateClassID), nil
}

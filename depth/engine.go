// Package depth 单目相对深度估计 (Depth Anything V2)
//
// 输出与原图同尺寸, 数值越大越近, 没有物理尺度
package depth

import (
	"fmt"
	"github.com/getcharzp/go-cargo"
	ort "github.com/getcharzp/onnxruntime_purego"
	"github.com/up-zero/gotool/convertutil"
	"gonum.org/v1/gonum/mat"
	"image"
)

// Engine Depth Anything V2 Engine
type Engine struct {
	session *ort.Session
	config  Config
}

// NewEngine 初始化深度引擎
func NewEngine(cfg Config) (*Engine, error) {
	d := DefaultConfig()
	if cfg.InputSize <= 0 {
		cfg.InputSize = d.InputSize
	}
	if cfg.InputName == "" {
		cfg.InputName = d.InputName
	}
	if cfg.OutputName == "" {
		cfg.OutputName = d.OutputName
	}
	if cfg.Std == [3]float32{} {
		cfg.Mean, cfg.Std = d.Mean, d.Std
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

// Predict 估计相对深度, 返回 (图像高 x 图像宽) 的矩阵
func (e *Engine) Predict(img image.Image) (*mat.Dense, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("图片尺寸为空")
	}
	size := e.config.InputSize

	// 预处理
	data := normalize(img, size, e.config.Mean, e.config.Std)
	inputTensor, err := ort.NewTensor([]int64{1, 3, int64(size), int64(size)}, data)
	if err != nil {
		return nil, fmt.Errorf("预处理失败: %w", err)
	}
	defer inputTensor.Destroy()

	// 推理
	outputValues, err := e.session.Run(map[string]*ort.Value{
		e.config.InputName: inputTensor,
	})
	if err != nil {
		return nil, fmt.Errorf("推理失败: %w", err)
	}
	for name, v := range outputValues {
		if name != e.config.OutputName {
			v.Destroy()
		}
	}
	outputValue, ok := outputValues[e.config.OutputName]
	if !ok {
		return nil, fmt.Errorf("缺少输出 %s", e.config.OutputName)
	}
	defer outputValue.Destroy()

	// Output Shape: [1, S, S]
	out, err := ort.GetTensorData[float32](outputValue)
	if err != nil {
		return nil, fmt.Errorf("获取输出数据失败: %w", err)
	}
	if len(out) != size*size {
		return nil, fmt.Errorf("输出长度 %d 与输入尺寸 %dx%d 不符", len(out), size, size)
	}

	return upsample(out, size, size, bounds.Dx(), bounds.Dy()), nil
}

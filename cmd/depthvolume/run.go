package main

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/getcharzp/go-cargo/catalog"
	"github.com/getcharzp/go-cargo/depth"
	"github.com/getcharzp/go-cargo/detect"
	"github.com/getcharzp/go-cargo/estimate"
	"github.com/getcharzp/go-cargo/locator"
	"github.com/getcharzp/go-cargo/overlay"
	"github.com/getcharzp/go-cargo/pipeline"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"io"
	"strings"
)

// batchOutput 多张图片时每张图片的输出
type batchOutput[T any] struct {
	Image  string `json:"image"`
	Result *T     `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// closers 按注册的逆序释放资源
type closers []func() error

func (cs *closers) add(f func() error) { *cs = append(*cs, f) }

func (cs closers) close() error {
	var err error
	for i := len(cs) - 1; i >= 0; i-- {
		err = multierr.Append(err, cs[i]())
	}
	return err
}

// newLogger 输出到 stderr 的控制台日志, stdout 只留给 JSON 结果
func newLogger(level string) (*zap.SugaredLogger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("日志级别错误: %w", err)
	}
	logger, err := zap.Config{
		Level:    lvl,
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar().Named("depthvolume"), nil
}

// requestsFrom 校验参数并生成请求, 在加载模型之前完成
func requestsFrom(c *cli.Context) ([]pipeline.Request, error) {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: 需要至少一张图片", pipeline.ErrInput)
	}
	packing := c.Float64(flagPackingDensity)
	if !(packing >= pipeline.MinPackingDensity && packing <= pipeline.MaxPackingDensity) {
		return nil, fmt.Errorf("%w: 装填率 %v 超出范围 [%v, %v]",
			pipeline.ErrInput, packing, pipeline.MinPackingDensity, pipeline.MaxPackingDensity)
	}

	reqs := make([]pipeline.Request, 0, len(paths))
	for _, p := range paths {
		reqs = append(reqs, pipeline.Request{
			ImagePath:      p,
			TruckClass:     c.String(flagTruckClass),
			Material:       c.String(flagMaterial),
			PackingDensity: packing,
		})
	}
	return reqs, nil
}

// loadCatalog 读取车型表并提前检查车型与材料
func loadCatalog(c *cli.Context) (*catalog.Catalog, error) {
	cat := catalog.Default()
	if p := c.String(flagSpecFile); p != "" {
		var err error
		if cat, err = catalog.Load(p); err != nil {
			return nil, fmt.Errorf("%w: %w", pipeline.ErrInput, err)
		}
	}
	if _, err := cat.Truck(c.String(flagTruckClass)); err != nil {
		return nil, fmt.Errorf("%w: %w", pipeline.ErrInput, err)
	}
	if _, err := cat.Density(c.String(flagMaterial)); err != nil {
		return nil, fmt.Errorf("%w: %w", pipeline.ErrInput, err)
	}
	return cat, nil
}

// buildLocators 按 --locator 的顺序组装定位器, 返回 nil 表示始终使用默认车斗框
func buildLocators(c *cli.Context, cs *closers) (pipeline.RegionLocator, error) {
	var chain locator.Chain
	for _, name := range c.StringSlice(flagLocators) {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case locatorAnalyzer:
			chain = append(chain, locator.NewCLI(analyzerConfig(c)))
		case locatorHTTP:
			if c.String(flagLocatorURL) == "" {
				return nil, fmt.Errorf("http 定位器需要 --%s", flagLocatorURL)
			}
			chain = append(chain, locator.NewHTTP(locator.HTTPConfig{
				URL:     c.String(flagLocatorURL),
				Timeout: c.Duration(flagLocatorTimeout),
			}))
		case locatorDetect:
			cfg := detect.DefaultConfig()
			cfg.ModelPath = c.String(flagDetectModel)
			cfg.OnnxRuntimeLibPath = c.String(flagOnnxLib)
			cfg.UseCuda = c.Bool(flagCuda)
			cfg.NumThreads = c.Int(flagThreads)
			engine, err := detect.NewEngine(cfg)
			if err != nil {
				return nil, fmt.Errorf("初始化检测引擎失败: %w", err)
			}
			cs.add(func() error { engine.Destroy(); return nil })
			chain = append(chain, engine)
		case locatorNone, "":
		default:
			return nil, fmt.Errorf("未知的定位器: %s", name)
		}
	}
	if len(chain) == 0 {
		return nil, nil
	}
	return chain, nil
}

func analyzerConfig(c *cli.Context) locator.CLIConfig {
	return locator.CLIConfig{
		AnalyzerPath: c.String(flagAnalyzerPath),
		Model:        c.String(flagAnalyzerModel),
		Timeout:      c.Duration(flagLocatorTimeout),
	}
}

func estimateConfig(c *cli.Context) estimate.Config {
	return estimate.Config{
		MaxCargoHeight: c.Float64(flagMaxHeight),
		ReferenceSpan:  c.Float64(flagReferenceSpan),
		GridRows:       c.Int(flagGridRows),
		GridCols:       c.Int(flagGridCols),
		StrictSign:     c.Bool(flagStrictSign),
	}
}

func runAction(c *cli.Context) (err error) {
	logger, err := newLogger(c.String(flagLogLevel))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	method := strings.ToLower(strings.TrimSpace(c.String(flagMethod)))
	if method != methodDepth && method != methodGeometry {
		return fmt.Errorf("%w: 未知的估计方法: %s", pipeline.ErrInput, c.String(flagMethod))
	}
	reqs, err := requestsFrom(c)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(c)
	if err != nil {
		return err
	}

	var cs closers
	defer func() { err = multierr.Append(err, cs.close()) }()

	pcfg := pipeline.DefaultConfig()
	pcfg.Estimate = estimateConfig(c)
	pcfg.Workers = c.Int(flagWorkers)
	pcfg.OverlayDir = c.String(flagOverlayDir)

	opts := []pipeline.Option{
		pipeline.WithCatalog(cat),
		pipeline.WithConfig(pcfg),
		pipeline.WithLogger(logger),
	}
	if pcfg.OverlayDir != "" {
		ocfg := overlay.DefaultConfig()
		ocfg.FontPath = c.String(flagFont)
		ocfg.MaxHeight = pcfg.Estimate.MaxCargoHeight
		renderer, err := overlay.NewRenderer(ocfg)
		if err != nil {
			return err
		}
		cs.add(renderer.Close)
		opts = append(opts, pipeline.WithRenderer(renderer))
	}

	if method == methodGeometry {
		runner, err := pipeline.NewGeometryRunner(locator.NewCLI(analyzerConfig(c)), opts...)
		if err != nil {
			return err
		}
		return output(c, reqs, runner.RunGeometry, runner.RunGeometryBatch)
	}

	loc, err := buildLocators(c, &cs)
	if err != nil {
		return err
	}
	if loc != nil {
		opts = append(opts, pipeline.WithLocator(loc))
	}

	dcfg := depth.DefaultConfig()
	dcfg.ModelPath = c.String(flagDepthModel)
	dcfg.OnnxRuntimeLibPath = c.String(flagOnnxLib)
	dcfg.UseCuda = c.Bool(flagCuda)
	dcfg.NumThreads = c.Int(flagThreads)
	logger.Infow("加载深度模型", "model", dcfg.ModelPath, "cuda", dcfg.UseCuda)
	depthEngine, err := depth.NewEngine(dcfg)
	if err != nil {
		return fmt.Errorf("初始化深度引擎失败: %w", err)
	}
	cs.add(func() error { depthEngine.Destroy(); return nil })

	runner, err := pipeline.NewRunner(depthEngine, opts...)
	if err != nil {
		return err
	}
	return output(c, reqs, runner.Run, runner.RunBatch)
}

// output 单张图片直接输出结果, 多张图片输出数组并在有失败时返回错误
func output[T any](c *cli.Context, reqs []pipeline.Request,
	run func(context.Context, pipeline.Request) (*T, error),
	batch func(context.Context, []pipeline.Request) ([]pipeline.BatchItem[T], error)) error {
	if len(reqs) == 1 {
		res, err := run(c.Context, reqs[0])
		if err != nil {
			return err
		}
		return writeJSON(c.App.Writer, res)
	}

	items, err := batch(c.Context, reqs)
	out := make([]batchOutput[T], len(items))
	var failed int
	for i, item := range items {
		out[i] = batchOutput[T]{Image: item.Request.ImagePath, Result: item.Result}
		if item.Err != nil {
			out[i].Error = item.Err.Error()
			failed++
		}
	}
	if werr := writeJSON(c.App.Writer, out); werr != nil {
		return werr
	}
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d/%d 张图片处理失败", failed, len(items))
	}
	return nil
}

// writeJSON 缩进输出, 不转义非 ASCII 字符
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

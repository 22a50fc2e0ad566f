package main

import (
	"github.com/getcharzp/go-cargo"
	"github.com/getcharzp/go-cargo/depth"
	"github.com/getcharzp/go-cargo/detect"
	"github.com/getcharzp/go-cargo/estimate"
	"github.com/getcharzp/go-cargo/locator"
	"github.com/getcharzp/go-cargo/pipeline"
	"github.com/urfave/cli/v2"
	"runtime"
)

const (
	// 估计参数
	flagTruckClass     = "truck-class"
	flagMaterial       = "material"
	flagPackingDensity = "packing-density"
	flagSpecFile       = "spec-file"
	flagMaxHeight      = "max-height"
	flagReferenceSpan  = "reference-span"
	flagGridRows       = "grid-rows"
	flagGridCols       = "grid-cols"
	flagStrictSign     = "strict-sign"

	// 模型
	flagDepthModel  = "depth-model"
	flagDetectModel = "detect-model"
	flagOnnxLib     = "onnx-lib"
	flagCuda        = "cuda"
	flagThreads     = "threads"

	// 区域定位
	flagLocators       = "locator"
	flagAnalyzerPath   = "analyzer-path"
	flagAnalyzerModel  = "analyzer-model"
	flagLocatorURL     = "locator-url"
	flagLocatorTimeout = "locator-timeout"

	// 输出
	flagMethod     = "method"
	flagOverlayDir = "overlay-dir"
	flagFont       = "font"
	flagWorkers    = "workers"
	flagLogLevel   = "log-level"
)

// 估计方法
const (
	methodDepth    = "depth"
	methodGeometry = "box-overlay"
)

// 定位器名称
const (
	locatorAnalyzer = "analyzer"
	locatorHTTP     = "http"
	locatorDetect   = "detect"
	locatorNone     = "none"
)

func env(name string) []string {
	return []string{"CARGO_" + name}
}

func newApp() *cli.App {
	depthDefaults := depth.DefaultConfig()
	detectDefaults := detect.DefaultConfig()
	cliDefaults := locator.DefaultCLIConfig()

	return &cli.App{
		Name:      "depthvolume",
		Usage:     "estimate dump truck cargo volume and tonnage from a single photo",
		ArgsUsage: "IMAGE [IMAGE...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagTruckClass,
				Value:   pipeline.DefaultTruckClass,
				Usage:   "truck class (2t, 4t, 増トン, 10t)",
				EnvVars: env("TRUCK_CLASS"),
			},
			&cli.StringFlag{
				Name:    flagMaterial,
				Value:   pipeline.DefaultMaterial,
				Usage:   "material type (土砂, As殻, Co殻, 開粒度As殻)",
				EnvVars: env("MATERIAL"),
			},
			&cli.Float64Flag{
				Name:    flagPackingDensity,
				Value:   pipeline.DefaultPackingDensity,
				Usage:   "packing density (0.5-0.9)",
				EnvVars: env("PACKING_DENSITY"),
			},
			&cli.StringFlag{
				Name:    flagSpecFile,
				Usage:   "load truck specs and material densities from JSON `FILE`",
				EnvVars: env("SPEC_FILE"),
			},
			&cli.Float64Flag{
				Name:  flagMaxHeight,
				Value: estimate.DefaultMaxCargoHeight,
				Usage: "upper bound of cargo height above the floor (m)",
			},
			&cli.Float64Flag{
				Name:  flagReferenceSpan,
				Value: estimate.DefaultReferenceSpan,
				Usage: "height assigned to the P5..P95 depth span when the floor is hidden (m)",
			},
			&cli.IntFlag{
				Name:  flagGridRows,
				Value: estimate.DefaultGridRows,
				Usage: "volume grid rows (bed width direction)",
			},
			&cli.IntFlag{
				Name:  flagGridCols,
				Value: estimate.DefaultGridCols,
				Usage: "volume grid columns (bed length direction)",
			},
			&cli.BoolFlag{
				Name:  flagStrictSign,
				Usage: "fail when the floor plane suggests an inverted depth sign",
			},
			&cli.StringFlag{
				Name:    flagDepthModel,
				Value:   depthDefaults.ModelPath,
				Usage:   "Depth Anything V2 ONNX model `FILE`",
				EnvVars: env("DEPTH_MODEL"),
			},
			&cli.StringFlag{
				Name:    flagDetectModel,
				Value:   detectDefaults.ModelPath,
				Usage:   "YOLO26 truck bed detector ONNX model `FILE` (used by the detect locator)",
				EnvVars: env("DETECT_MODEL"),
			},
			&cli.StringFlag{
				Name:    flagOnnxLib,
				Value:   cargo.DefaultLibraryPath(),
				Usage:   "ONNX Runtime shared library",
				EnvVars: env("ONNX_LIB"),
			},
			&cli.BoolFlag{
				Name:    flagCuda,
				Usage:   "enable the CUDA execution provider",
				EnvVars: env("CUDA"),
			},
			&cli.IntFlag{
				Name:  flagThreads,
				Usage: "ONNX intra-op threads (0 = runtime default)",
			},
			&cli.StringSliceFlag{
				Name:    flagLocators,
				Value:   cli.NewStringSlice(locatorAnalyzer),
				Usage:   "region locators tried in order: analyzer, http, detect, none",
				EnvVars: env("LOCATOR"),
			},
			&cli.StringFlag{
				Name:    flagAnalyzerPath,
				Value:   cliDefaults.AnalyzerPath,
				Usage:   "vision analyzer executable",
				EnvVars: env("ANALYZER"),
			},
			&cli.StringFlag{
				Name:  flagAnalyzerModel,
				Value: cliDefaults.Model,
				Usage: "model passed to the analyzer",
			},
			&cli.StringFlag{
				Name:    flagLocatorURL,
				Usage:   "region locator service `URL` (http locator)",
				EnvVars: env("LOCATOR_URL"),
			},
			&cli.DurationFlag{
				Name:  flagLocatorTimeout,
				Value: cliDefaults.Timeout,
				Usage: "timeout of a single locator call",
			},
			&cli.StringFlag{
				Name:    flagMethod,
				Value:   methodDepth,
				Usage:   "estimation method: depth (depth map + floor plane) or box-overlay (tailgate geometry via the analyzer)",
				EnvVars: env("METHOD"),
			},
			&cli.StringFlag{
				Name:  flagOverlayDir,
				Usage: "save a diagnostic overlay per image into `DIR`",
			},
			&cli.StringFlag{
				Name:  flagFont,
				Usage: "TrueType font for overlay labels (default: Go Regular)",
			},
			&cli.IntFlag{
				Name:  flagWorkers,
				Value: runtime.NumCPU(),
				Usage: "images processed in parallel",
			},
			&cli.StringFlag{
				Name:    flagLogLevel,
				Value:   "info",
				Usage:   "log level (debug, info, warn, error)",
				EnvVars: env("LOG_LEVEL"),
			},
		},
		Action: runAction,
	}
}

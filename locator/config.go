package locator

import "time"

// DefaultPrompt 要求模型只输出车斗与车牌的归一化坐标
const DefaultPrompt = `Output ONLY JSON: {"bedBox": [x1,y1,x2,y2], "plateBox": [x1,y1,x2,y2]} ` +
	"bedBox = bounding box of the truck bed opening (cargo area). " +
	"plateBox = bounding box of the rear license plate of the truck. " +
	"All coordinates are normalized 0.0-1.0 relative to image width/height. " +
	"x1,y1 = top-left, x2,y2 = bottom-right."

// GeometryPrompt 后板几何: 车牌框与后板上下沿、货物最高点的纵坐标
const GeometryPrompt = `Output ONLY JSON: {"plateBox":[x1,y1,x2,y2], "tailgateTopY": 0.0, "tailgateBottomY": 0.0, "cargoTopY": 0.0} ` +
	"This is a rear view of a dump truck carrying construction debris. " +
	"plateBox = bounding box of the rear license plate (normalized 0-1, [left,top,right,bottom]). " +
	"tailgateTopY = Y coordinate (normalized 0-1) of the TOP edge of the tailgate. " +
	"tailgateBottomY = Y coordinate (normalized 0-1) of the BOTTOM edge of the tailgate. " +
	"cargoTopY = Y coordinate (normalized 0-1) of the HIGHEST point of the cargo pile. " +
	"tailgateTopY < tailgateBottomY < plateBox[3] (top has smaller Y). " +
	"cargoTopY < tailgateTopY if cargo is heaped above the rim, cargoTopY > tailgateTopY if it is below the rim."

// FillPrompt 装载比例与装填率
const FillPrompt = `Output ONLY JSON: {"fillRatioL": 0.0, "fillRatioW": 0.0, "packingDensity": 0.0, "reasoning": "..."} ` +
	"This is a rear view of a dump truck carrying construction debris. Estimate each parameter independently. " +
	"fillRatioL (0.3-0.9): fraction of the bed LENGTH occupied by cargo; full load touching both ends = 0.85-0.9, " +
	"normal load = 0.6-0.8, light load = 0.4-0.6. " +
	"fillRatioW (0.5-1.0): fraction of the bed WIDTH covered by cargo at the top surface, usually 0.8-1.0. " +
	"packingDensity (0.5-0.9): how tightly the chunks are packed; loose with visible gaps = 0.5-0.6, " +
	"moderate = 0.65-0.7, tight = 0.8-0.9."

// CLIConfig 外部分析命令的参数
type CLIConfig struct {
	AnalyzerPath   string        // 分析命令路径
	Model          string        // 默认 gemini-3-flash-preview
	Prompt         string        // 默认 DefaultPrompt
	GeometryPrompt string        // 默认 GeometryPrompt
	FillPrompt     string        // 默认 FillPrompt
	Timeout        time.Duration // 默认 120s
}

// DefaultCLIConfig 默认配置
func DefaultCLIConfig() CLIConfig {
	return CLIConfig{
		AnalyzerPath:   "cli-ai-analyzer",
		Model:          "gemini-3-flash-preview",
		Prompt:         DefaultPrompt,
		GeometryPrompt: GeometryPrompt,
		FillPrompt:     FillPrompt,
		Timeout:        120 * time.Second,
	}
}

// HTTPConfig HTTP 定位服务的参数
type HTTPConfig struct {
	URL       string        // 服务地址, 以 multipart 字段 file 上传图片
	FieldName string        // 默认 file
	Timeout   time.Duration // 默认 120s
}

// DefaultHTTPConfig 默认配置
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		FieldName: "file",
		Timeout:   120 * time.Second,
	}
}

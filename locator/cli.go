package locator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CLI 通过外部分析命令定位区域
//
//	<AnalyzerPath> analyze --json --model <Model> --prompt <Prompt> <image>
type CLI struct {
	config CLIConfig
}

// NewCLI 创建命令行定位器, 空字段使用默认值
func NewCLI(cfg CLIConfig) *CLI {
	d := DefaultCLIConfig()
	if cfg.AnalyzerPath == "" {
		cfg.AnalyzerPath = d.AnalyzerPath
	}
	if cfg.Model == "" {
		cfg.Model = d.Model
	}
	if cfg.Prompt == "" {
		cfg.Prompt = d.Prompt
	}
	if cfg.GeometryPrompt == "" {
		cfg.GeometryPrompt = d.GeometryPrompt
	}
	if cfg.FillPrompt == "" {
		cfg.FillPrompt = d.FillPrompt
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	return &CLI{config: cfg}
}

// Args 返回调用参数 (不含命令本身)
func (c *CLI) Args(imagePath string) []string {
	return c.args(c.config.Prompt, imagePath)
}

func (c *CLI) args(prompt, imagePath string) []string {
	return []string{
		"analyze",
		"--json",
		"--model", c.config.Model,
		"--prompt", prompt,
		imagePath,
	}
}

// Analyze 以指定提示词调用分析命令, 返回 stdout
func (c *CLI) Analyze(ctx context.Context, prompt, imagePath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.config.AnalyzerPath, c.args(prompt, imagePath)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: 分析命令超时 (%s)", ErrLocate, c.config.Timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		return "", fmt.Errorf("%w: 分析命令执行失败: %w: %s", ErrLocate, err, msg)
	}
	return stdout.String(), nil
}

// Locate 实现 Locator
func (c *CLI) Locate(ctx context.Context, imagePath string) (Regions, error) {
	out, err := c.Analyze(ctx, c.config.Prompt, imagePath)
	if err != nil {
		return Regions{}, err
	}
	r, err := ParseRegions(out)
	if err != nil {
		return Regions{}, fmt.Errorf("%w: %w", ErrLocate, err)
	}
	return r, nil
}

// Geometry 识别车牌、后板上下沿与货物最高点
func (c *CLI) Geometry(ctx context.Context, imagePath string) (Geometry, error) {
	out, err := c.Analyze(ctx, c.config.GeometryPrompt, imagePath)
	if err != nil {
		return Geometry{}, err
	}
	g, err := ParseGeometry(out)
	if err != nil {
		return Geometry{}, fmt.Errorf("%w: %w", ErrLocate, err)
	}
	return g, nil
}

// Fill 估计长度/宽度方向的装载比例与装填率
func (c *CLI) Fill(ctx context.Context, imagePath string) (Fill, error) {
	out, err := c.Analyze(ctx, c.config.FillPrompt, imagePath)
	if err != nil {
		return Fill{}, err
	}
	f, err := ParseFill(out)
	if err != nil {
		return Fill{}, fmt.Errorf("%w: %w", ErrLocate, err)
	}
	return f, nil
}

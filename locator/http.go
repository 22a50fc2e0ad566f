package locator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// maxResponseSize 响应体上限
const maxResponseSize = 1 << 20

// HTTP 把图片上传到定位服务, 服务返回与 CLI 相同的 JSON 对象
type HTTP struct {
	config HTTPConfig
	client *http.Client
}

// NewHTTP 创建 HTTP 定位器
func NewHTTP(cfg HTTPConfig) *HTTP {
	d := DefaultHTTPConfig()
	if cfg.FieldName == "" {
		cfg.FieldName = d.FieldName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	return &HTTP{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Locate 实现 Locator
func (h *HTTP) Locate(ctx context.Context, imagePath string) (Regions, error) {
	if h.config.URL == "" {
		return Regions{}, fmt.Errorf("%w: 未配置服务地址", ErrLocate)
	}
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return Regions{}, fmt.Errorf("%w: 读取图片失败: %w", ErrLocate, err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(h.config.FieldName, filepath.Base(imagePath))
	if err != nil {
		return Regions{}, fmt.Errorf("%w: 创建表单失败: %w", ErrLocate, err)
	}
	if _, err := part.Write(imageData); err != nil {
		return Regions{}, fmt.Errorf("%w: 写入图片失败: %w", ErrLocate, err)
	}
	if err := writer.Close(); err != nil {
		return Regions{}, fmt.Errorf("%w: %w", ErrLocate, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.config.URL, body)
	if err != nil {
		return Regions{}, fmt.Errorf("%w: 创建请求失败: %w", ErrLocate, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := h.client.Do(req)
	if err != nil {
		return Regions{}, fmt.Errorf("%w: 请求失败: %w", ErrLocate, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Regions{}, fmt.Errorf("%w: 读取响应失败: %w", ErrLocate, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Regions{}, fmt.Errorf("%w: 服务返回状态码 %d", ErrLocate, resp.StatusCode)
	}

	r, err := ParseRegions(string(data))
	if err != nil {
		return Regions{}, fmt.Errorf("%w: %w", ErrLocate, err)
	}
	return r, nil
}

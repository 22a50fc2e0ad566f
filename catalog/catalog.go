// Package catalog 车型规格表与材料密度表
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"go.uber.org/multierr"
	"math"
	"os"
	"path/filepath"
	"sort"
)

var (
	// ErrUnknownTruck 车型不存在
	ErrUnknownTruck = errors.New("未知车型")
	// ErrUnknownMaterial 材料不存在
	ErrUnknownMaterial = errors.New("未知材料")
)

//go:embed truck_specs.json
var defaultSpec []byte

// maxFileSize 规格文件大小上限
const maxFileSize = 1 << 20

// TruckSpec 车斗物理尺寸 (米)
type TruckSpec struct {
	BedLength float64 `json:"bedLength"` // 车斗长度
	BedWidth  float64 `json:"bedWidth"`  // 车斗宽度
	BedHeight float64 `json:"bedHeight"` // 后板高度 (上沿到底板)
}

// Validate 尺寸必须为正数
func (s TruckSpec) Validate() error {
	var err error
	fields := []struct {
		name string
		v    float64
	}{
		{"bedLength", s.BedLength},
		{"bedWidth", s.BedWidth},
		{"bedHeight", s.BedHeight},
	}
	for _, f := range fields {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			err = multierr.Append(err, fmt.Errorf("%s 必须为正数, 实际 %v", f.name, f.v))
		}
	}
	return err
}

// Catalog 只读的规格/密度查询表
type Catalog struct {
	Trucks    map[string]TruckSpec `json:"truckSpecs"`
	Materials map[string]float64   `json:"materialDensities"` // t/m³
}

// Default 内置规格表
func Default() *Catalog {
	c, err := parse(defaultSpec)
	if err != nil {
		panic(fmt.Sprintf("内置规格表损坏: %v", err))
	}
	return c
}

// Load 读取规格文件 (prompt-spec.json 格式, 其余字段忽略)
func Load(path string) (*Catalog, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("规格文件必须是 .json, 实际 %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("读取规格文件失败: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("规格文件过大: %d 字节 (上限 %d)", info.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("读取规格文件失败: %w", err)
	}
	return Parse(data)
}

// Parse 解析规格 JSON 并校验, 缺少 materialDensities 时使用内置密度表
func Parse(data []byte) (*Catalog, error) {
	c, err := parse(data)
	if err != nil {
		return nil, err
	}
	if len(c.Materials) == 0 {
		c.Materials = Default().Materials
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("规格表不合法: %w", err)
	}
	return c, nil
}

func parse(data []byte) (*Catalog, error) {
	c := new(Catalog)
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("解析规格 JSON 失败: %w", err)
	}
	return c, nil
}

// Validate 校验所有车型与密度
func (c *Catalog) Validate() error {
	var err error
	if len(c.Trucks) == 0 {
		err = multierr.Append(err, errors.New("truckSpecs 为空"))
	}
	for _, name := range sortedKeys(c.Trucks) {
		if e := c.Trucks[name].Validate(); e != nil {
			err = multierr.Append(err, fmt.Errorf("车型 %s: %w", name, e))
		}
	}
	for _, name := range sortedKeys(c.Materials) {
		if d := c.Materials[name]; !(d > 0) || math.IsInf(d, 0) {
			err = multierr.Append(err, fmt.Errorf("材料 %s 密度必须为正数, 实际 %v", name, d))
		}
	}
	return err
}

// Truck 按车型查询
func (c *Catalog) Truck(class string) (TruckSpec, error) {
	s, ok := c.Trucks[class]
	if !ok {
		return TruckSpec{}, fmt.Errorf("%w %q, 可选: %v", ErrUnknownTruck, class, sortedKeys(c.Trucks))
	}
	return s, nil
}

// Density 按材料查询密度 (t/m³)
func (c *Catalog) Density(material string) (float64, error) {
	d, ok := c.Materials[material]
	if !ok {
		return 0, fmt.Errorf("%w %q, 可选: %v", ErrUnknownMaterial, material, sortedKeys(c.Materials))
	}
	return d, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package estimate 由相对深度图估计车斗内货物的高度图、体积与重量
//
// 流程: 底板基准面 (EstimateFloorPlane) -> 高度标定 (Calibrate)
// -> 网格积分 (IntegrateVolume) -> 重量 (Tonnage)。每一步都返回新矩阵,
// 不修改输入。
package estimate

import (
	"fmt"
	"github.com/getcharzp/go-cargo/catalog"
	"github.com/getcharzp/go-cargo/grid"
	"gonum.org/v1/gonum/mat"
)

// Estimate 单张图片的估计结果
type Estimate struct {
	Box         grid.PixelBox
	Crop        *mat.Dense // 车斗区域深度
	Floor       *mat.Dense // 基准面
	HeightMap   *mat.Dense // 高度图 (米)
	Calibration Calibration

	FloorFront     float64 // 基准面首行深度 (车斗前部)
	FloorRear      float64 // 基准面末行深度 (车斗后部)
	SignConsistent bool    // 深度符号是否符合 "越大越近"

	Volume     float64 // 体积 (m³)
	MeanHeight float64 // 平均高度 (米)
}

// Run 执行底板估计、标定与体积积分
//
// # Params:
//
//	depthMap: 整张图的相对深度图 (数值越大越近)
//	box: 车斗像素框
//	truck: 车型尺寸
//	cfg: 参数
func Run(depthMap *mat.Dense, box grid.PixelBox, truck catalog.TruckSpec, cfg Config) (*Estimate, error) {
	cfg = cfg.withDefaults()

	floor, err := EstimateFloorPlane(depthMap, box)
	if err != nil {
		return nil, err
	}
	crop, err := grid.Crop(depthMap, box)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDegenerateBox, err)
	}

	e := &Estimate{Box: box, Crop: crop, Floor: floor}
	e.FloorFront, e.FloorRear = FloorProfile(floor)
	e.SignConsistent = SignConsistent(floor)
	if cfg.StrictSign && !e.SignConsistent {
		return nil, fmt.Errorf("%w: 基准面前部 %.4f 比后部 %.4f 更近, 深度符号可能相反",
			ErrCalibration, e.FloorFront, e.FloorRear)
	}

	e.HeightMap, e.Calibration, err = Calibrate(crop, floor, truck.BedHeight, cfg)
	if err != nil {
		return nil, err
	}
	e.Volume, e.MeanHeight = IntegrateVolume(e.HeightMap, truck.BedLength, truck.BedWidth, cfg.GridRows, cfg.GridCols)
	return e, nil
}

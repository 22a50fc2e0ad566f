package pipeline

import (
	"context"
	"golang.org/x/sync/errgroup"
)

// BatchItem 批量处理中单张图片的结果, Result 与 Err 二选一
type BatchItem[T any] struct {
	Request Request
	Result  *T
	Err     error
}

// RunBatch 并发处理多张图片, 结果顺序与输入一致
//
// 单张图片失败只记录在对应的 BatchItem 中, 不影响其他图片。
// ctx 取消后尚未开始的图片记为 ctx.Err(), 并返回该错误。
func (r *Runner) RunBatch(ctx context.Context, reqs []Request) ([]BatchItem[Result], error) {
	return runBatch(ctx, r, reqs, r.Run)
}

// RunGeometryBatch 与 RunBatch 相同, 使用后板几何法
func (r *Runner) RunGeometryBatch(ctx context.Context, reqs []Request) ([]BatchItem[GeometryResult], error) {
	return runBatch(ctx, r, reqs, r.RunGeometry)
}

func runBatch[T any](ctx context.Context, r *Runner, reqs []Request,
	run func(context.Context, Request) (*T, error)) ([]BatchItem[T], error) {
	items := make([]BatchItem[T], len(reqs))

	g := new(errgroup.Group)
	g.SetLimit(max(1, r.config.Workers))
	for i, req := range reqs {
		items[i].Request = req
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			res, err := run(ctx, req)
			if err != nil {
				r.logger.Errorw("处理失败", "image", req.ImagePath, "error", err)
			}
			items[i].Result, items[i].Err = res, err
			return nil
		})
	}
	_ = g.Wait()
	return items, ctx.Err()
}

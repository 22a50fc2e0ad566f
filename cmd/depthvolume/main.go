// Package main 命令行: 由单张 (或多张) 自卸车照片估计货物体积与重量, 结果以 JSON 输出到 stdout
package main

import (
	"context"
	"fmt"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Package main 启动 file2crashes：HTTP 接口、每日分析任务与命令行工具.
package main

import (
	"os"

	"github.com/yeisme/file2crashes/pkg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

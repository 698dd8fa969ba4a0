// 管理命令：直接读写与服务相同的槽位（列出、添加、删除、导入导出、语言）
// 约束：服务运行中修改存储后，需调用服务的 POST {API_BASE}/refresh 才会反映到画面
package main

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"tripmark/internal/logger"
	"tripmark/internal/slot"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	logger.Setup()
	if err := newRootCmd(slot.OpenFromEnv, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// ytdash-import 将频道统计 CSV 整体写入 SQLite 镜像。
//
// 用法: ytdash-import [csv-path]
// 未指定路径时使用配置中的 dataset.csv_path。
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"ytdash/internal/config"
	"ytdash/internal/dataset"
	"ytdash/internal/logger"
	"ytdash/internal/store/sqlite"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfgPath := os.Getenv("YTDASH_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	logger.SetFormat(cfg.App.LogFormat)
	logger.SetLevel(cfg.App.LogLevel)

	csvPath := cfg.Dataset.CSVPath
	if len(os.Args) > 1 && strings.TrimSpace(os.Args[1]) != "" {
		csvPath = os.Args[1]
	}

	table, err := dataset.LoadCSV(csvPath)
	if err != nil {
		log.Fatalf("解析 CSV 失败: %v", err)
	}
	st, err := sqlite.NewSqliteStore(cfg.Dataset.SQLitePath)
	if err != nil {
		log.Fatalf("打开数据库失败: %v", err)
	}
	defer st.Close()

	run, err := st.ReplaceDataset(ctx, table)
	if err != nil {
		log.Fatalf("导入失败: %v", err)
	}
	logger.Infof("✓ 导入完成: %d 行, %d 个频道, 年份 %d-%d → %s (import=%s)",
		run.Rows, len(table.Channels()), run.MinYear, run.MaxYear, cfg.Dataset.SQLitePath, run.ID)

	runs, err := st.ListImports(ctx, 5)
	if err != nil {
		log.Fatalf("读取导入记录失败: %v", err)
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  rows=%d  source=%s\n", r.CreatedAt.Format(time.RFC3339), r.ID, r.Rows, r.Source)
	}
}

package store

import (
	"context"

	"ytdash/internal/dataset"
	"ytdash/internal/store/model"
)

// Store 是数据集 SQLite 镜像的访问入口。
type Store interface {
	// ReplaceDataset 在单个事务中用 table 覆盖现有数据，并记录导入。
	ReplaceDataset(ctx context.Context, table *dataset.Table) (model.ImportRunModel, error)
	// LoadDataset 按导入顺序读回完整数据表。
	LoadDataset(ctx context.Context) (*dataset.Table, error)
	// ListImports 返回最近的导入记录（新到旧）。
	ListImports(ctx context.Context, limit int) ([]model.ImportRunModel, error)
	// Close closes the store connection.
	Close() error
}

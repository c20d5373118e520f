package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ytdash/internal/dataset"
	"ytdash/internal/store"
	"ytdash/internal/store/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const insertBatchSize = 500

var _ store.Store = (*SqliteStore)(nil)

type SqliteStore struct {
	db   *gorm.DB
	path string
}

func NewSqliteStore(path string) (*SqliteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return newSqliteStore(db, path)
}

func NewSqliteStoreFromDB(db *gorm.DB) (*SqliteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	return newSqliteStore(db, "")
}

func newSqliteStore(db *gorm.DB, path string) (*SqliteStore, error) {
	if err := db.AutoMigrate(&model.ChannelStatModel{}, &model.ImportRunModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &SqliteStore{db: db, path: path}, nil
}

func (s *SqliteStore) ReplaceDataset(ctx context.Context, table *dataset.Table) (model.ImportRunModel, error) {
	if table.Len() == 0 {
		return model.ImportRunModel{}, dataset.ErrEmptyDataset
	}
	channels, err := json.Marshal(table.Channels())
	if err != nil {
		return model.ImportRunModel{}, err
	}
	minYear, maxYear, _ := table.YearBounds()
	now := time.Now()
	run := model.ImportRunModel{
		ID:            uuid.NewString(),
		Source:        table.Source(),
		Rows:          table.Len(),
		Channels:      datatypes.JSON(channels),
		MinYear:       minYear,
		MaxYear:       maxYear,
		CreatedAtUnix: now.Unix(),
		CreatedAt:     now,
	}
	rows := make([]model.ChannelStatModel, 0, table.Len())
	for _, r := range table.Records() {
		rows = append(rows, toModel(r, run.ID))
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.ChannelStatModel{}).Error; err != nil {
			return fmt.Errorf("clear channel_stats failed: %w", err)
		}
		if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
			return fmt.Errorf("insert channel_stats failed: %w", err)
		}
		return tx.Create(&run).Error
	})
	if err != nil {
		return model.ImportRunModel{}, err
	}
	return run, nil
}

func (s *SqliteStore) LoadDataset(ctx context.Context) (*dataset.Table, error) {
	var rows []model.ChannelStatModel
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, dataset.ErrEmptyDataset
	}
	records := make([]dataset.Record, len(rows))
	for i, row := range rows {
		records[i] = fromModel(row)
	}
	return dataset.NewTable(s.sourceName(), records), nil
}

func (s *SqliteStore) ListImports(ctx context.Context, limit int) ([]model.ImportRunModel, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []model.ImportRunModel
	err := s.db.WithContext(ctx).Order("created_at DESC").Order("rowid DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, err
	}
	for i := range runs {
		runs[i].CreatedAt = time.Unix(runs[i].CreatedAtUnix, 0)
	}
	return runs, nil
}

func (s *SqliteStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SqliteStore) sourceName() string {
	if s.path == "" {
		return "sqlite"
	}
	return "sqlite:" + s.path
}

// DatasetSource 让 SQLite 镜像充当 loader 的数据源。
type DatasetSource struct {
	Store store.Store
	Path  string
}

func (d DatasetSource) Name() string {
	return "sqlite:" + d.Path
}

func (d DatasetSource) Load(ctx context.Context) (*dataset.Table, error) {
	return d.Store.LoadDataset(ctx)
}

func toModel(r dataset.Record, importID string) model.ChannelStatModel {
	return model.ChannelStatModel{
		ChannelName:  r.Channel,
		Year:         r.Year,
		PublishedMs:  r.Published.UnixMilli(),
		Short:        r.Short,
		Title:        r.Title,
		ViewCount:    r.Views,
		LikeCount:    r.Likes,
		CommentCount: r.Comments,
		Engagement:   r.Engagement,
		ImportID:     importID,
	}
}

func fromModel(m model.ChannelStatModel) dataset.Record {
	return dataset.Record{
		Channel:    m.ChannelName,
		Year:       m.Year,
		Published:  time.UnixMilli(m.PublishedMs).UTC(),
		Short:      m.Short,
		Title:      m.Title,
		Views:      m.ViewCount,
		Likes:      m.LikeCount,
		Comments:   m.CommentCount,
		Engagement: m.Engagement,
	}
}

package model

import (
	"time"

	"gorm.io/datatypes"
)

// ChannelStatModel 对应 CSV 的一行，按导入顺序以自增 ID 排列。
type ChannelStatModel struct {
	ID           int64   `gorm:"column:id;primaryKey;autoIncrement"`
	ChannelName  string  `gorm:"column:channel_name;index:idx_channel_year,priority:1"`
	Year         int     `gorm:"column:year;index:idx_channel_year,priority:2"`
	PublishedMs  int64   `gorm:"column:published_ms"`
	Short        bool    `gorm:"column:short"`
	Title        string  `gorm:"column:title"`
	ViewCount    int64   `gorm:"column:view_count"`
	LikeCount    int64   `gorm:"column:like_count"`
	CommentCount int64   `gorm:"column:comment_count"`
	Engagement   float64 `gorm:"column:engagement"`
	ImportID     string  `gorm:"column:import_id;index"`
}

func (ChannelStatModel) TableName() string { return "channel_stats" }

// ImportRunModel 记录一次 CSV 导入。
type ImportRunModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	Source        string         `gorm:"column:source"`
	Rows          int            `gorm:"column:rows"`
	Channels      datatypes.JSON `gorm:"column:channels;type:TEXT"`
	MinYear       int            `gorm:"column:min_year"`
	MaxYear       int            `gorm:"column:max_year"`
	CreatedAtUnix int64          `gorm:"column:created_at"`

	CreatedAt time.Time `gorm:"-"`
}

func (ImportRunModel) TableName() string { return "import_runs" }

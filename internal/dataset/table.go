package dataset

import (
	"errors"
	"slices"
	"sort"
	"time"

	"ytdash/internal/metric"

	"github.com/shopspring/decimal"
)

var ErrEmptyDataset = errors.New("dataset has no rows")

// Table 是加载后不可变的数据表，可在 goroutine 间共享。
type Table struct {
	records  []Record
	channels []string
	minYear  int
	maxYear  int
	source   string
	loadedAt time.Time
}

// NewTable 复制 records 构建数据表；频道按首次出现顺序去重。
func NewTable(source string, records []Record) *Table {
	t := &Table{
		records:  slices.Clone(records),
		source:   source,
		loadedAt: time.Now(),
	}
	seen := make(map[string]struct{})
	for i, r := range t.records {
		if _, ok := seen[r.Channel]; !ok {
			seen[r.Channel] = struct{}{}
			t.channels = append(t.channels, r.Channel)
		}
		if i == 0 || r.Year < t.minYear {
			t.minYear = r.Year
		}
		if i == 0 || r.Year > t.maxYear {
			t.maxYear = r.Year
		}
	}
	return t
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

func (t *Table) Source() string {
	if t == nil {
		return ""
	}
	return t.source
}

func (t *Table) LoadedAt() time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.loadedAt
}

// Records 返回全部记录的副本。
func (t *Table) Records() []Record {
	if t == nil {
		return nil
	}
	return slices.Clone(t.records)
}

// Channels 返回去重后的频道名（首次出现顺序）。
func (t *Table) Channels() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.channels)
}

func (t *Table) HasChannel(name string) bool {
	if t == nil {
		return false
	}
	return slices.Contains(t.channels, name)
}

// YearBounds 返回年份区间；空表时 ok=false。
func (t *Table) YearBounds() (minYear, maxYear int, ok bool) {
	if t.Len() == 0 {
		return 0, 0, false
	}
	return t.minYear, t.maxYear, true
}

// All 以 Subset 形式返回整张表。
func (t *Table) All() Subset {
	if t == nil {
		return Subset{}
	}
	return Subset{records: t.records}
}

func (t *Table) Filter(q Query) Subset {
	return t.All().Filter(q)
}

// Query 是 channel == X && year == Y 的平面谓词。
type Query struct {
	Channel string
	Year    int
}

func (q Query) Match(r Record) bool {
	return r.Channel == q.Channel && r.Year == q.Year
}

// Subset 是数据表的只读切片视图。
type Subset struct {
	records []Record
}

func (s Subset) Len() int {
	return len(s.records)
}

func (s Subset) Records() []Record {
	return slices.Clone(s.records)
}

func (s Subset) Filter(q Query) Subset {
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	return Subset{records: out}
}

// Partition 按内容类型拆分为视频与 Shorts，保持原有顺序。
func (s Subset) Partition() (videos, shorts Subset) {
	for _, r := range s.records {
		if r.Short {
			shorts.records = append(shorts.records, r)
		} else {
			videos.records = append(videos.records, r)
		}
	}
	return videos, shorts
}

// Kind 只保留指定内容类型的记录。
func (s Subset) Kind(kind ContentKind) Subset {
	videos, shorts := s.Partition()
	if kind == KindShort {
		return shorts
	}
	return videos
}

// Average 是指标均值；Count 为 0 表示无数据。
type Average struct {
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

func (a Average) Valid() bool {
	return a.Count > 0
}

// Format 使用指标规则格式化均值，无数据时返回 metric.NoData。
func (a Average) Format(m metric.Metric) string {
	if !a.Valid() {
		return metric.NoData
	}
	return m.Format(a.Value)
}

// Average 计算指标的算术平均，累加使用 decimal 避免大计数的浮点误差。
func (s Subset) Average(m metric.Metric) Average {
	if len(s.records) == 0 {
		return Average{}
	}
	sum := decimal.Zero
	for _, r := range s.records {
		sum = sum.Add(decimalValue(r, m))
	}
	mean, _ := sum.Div(decimal.NewFromInt(int64(len(s.records)))).Float64()
	return Average{Value: mean, Count: len(s.records)}
}

func decimalValue(r Record, m metric.Metric) decimal.Decimal {
	switch m {
	case metric.ViewCount:
		return decimal.NewFromInt(r.Views)
	case metric.LikeCount:
		return decimal.NewFromInt(r.Likes)
	case metric.CommentCount:
		return decimal.NewFromInt(r.Comments)
	case metric.Engagement:
		return decimal.NewFromFloat(r.Engagement)
	default:
		return decimal.Zero
	}
}

// Point 是折线图上的一个数据点。
type Point struct {
	Published time.Time `json:"published"`
	Value     float64   `json:"value"`
	Title     string    `json:"title"`
}

// Series 按发布时间升序输出指标序列，时间相同保持原顺序。
func (s Subset) Series(m metric.Metric) []Point {
	points := make([]Point, 0, len(s.records))
	for _, r := range s.records {
		points = append(points, Point{Published: r.Published, Value: r.Value(m), Title: r.Title})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Published.Before(points[j].Published)
	})
	return points
}

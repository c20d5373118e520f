package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// CSV 列名。
const (
	ColumnChannel    = "channel_name"
	ColumnYear       = "year"
	ColumnPublished  = "published"
	ColumnShort      = "short"
	ColumnViews      = "view_count"
	ColumnLikes      = "like_count"
	ColumnComments   = "comment_count"
	ColumnEngagement = "engagement"
	ColumnTitle      = "title"
)

var requiredColumns = []string{
	ColumnChannel,
	ColumnYear,
	ColumnPublished,
	ColumnShort,
	ColumnViews,
	ColumnLikes,
	ColumnComments,
	ColumnEngagement,
	ColumnTitle,
}

var publishedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseError 描述无法解析的单元格或缺失的列。
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line <= 0 {
		return fmt.Sprintf("column %q: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("line %d, column %q: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	errMissingColumn = errors.New("missing required column")
	errNegative      = errors.New("must be non-negative")
	errNotInteger    = errors.New("must be an integer")
	errCountRange    = errors.New("exceeds the int64 range")
	errRateRange     = errors.New("must be a fraction in [0,1]")
)

// Source 提供一张完整的数据表。
type Source interface {
	Name() string
	Load(ctx context.Context) (*Table, error)
}

// CSVSource 从本地 CSV 文件加载。
type CSVSource struct {
	Path string
}

func (s CSVSource) Name() string {
	return "csv:" + s.Path
}

func (s CSVSource) Load(ctx context.Context) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadCSV(s.Path)
}

// LoadCSV 读取并严格解析 CSV 文件，任何坏行都会导致整体失败。
func LoadCSV(path string) (*Table, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("dataset path cannot be empty")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset failed: %w", err)
	}
	defer f.Close()
	table, err := ParseCSV(path, f)
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s failed: %w", path, err)
	}
	return table, nil
}

// ParseCSV 解析带表头的 CSV；列顺序不限，多余列忽略。
func ParseCSV(source string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDataset
		}
		return nil, err
	}
	index, err := indexColumns(header)
	if err != nil {
		return nil, err
	}
	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		rec, err := parseRow(row, index, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}
	return NewTable(source, records), nil
}

func indexColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &ParseError{Column: col, Err: errMissingColumn}
		}
	}
	return index, nil
}

func parseRow(row []string, index map[string]int, line int) (Record, error) {
	cell := func(col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	wrap := func(col string, err error) error {
		return &ParseError{Line: line, Column: col, Err: err}
	}

	var rec Record
	var err error
	rec.Channel = cell(ColumnChannel)
	if rec.Channel == "" {
		return Record{}, wrap(ColumnChannel, errors.New("cannot be empty"))
	}
	rec.Title = cell(ColumnTitle)
	year, err := parseCount(cell(ColumnYear))
	if err != nil {
		return Record{}, wrap(ColumnYear, err)
	}
	rec.Year = int(year)
	if rec.Published, err = parsePublished(cell(ColumnPublished)); err != nil {
		return Record{}, wrap(ColumnPublished, err)
	}
	if rec.Short, err = parseFlag(cell(ColumnShort)); err != nil {
		return Record{}, wrap(ColumnShort, err)
	}
	if rec.Views, err = parseCount(cell(ColumnViews)); err != nil {
		return Record{}, wrap(ColumnViews, err)
	}
	if rec.Likes, err = parseCount(cell(ColumnLikes)); err != nil {
		return Record{}, wrap(ColumnLikes, err)
	}
	if rec.Comments, err = parseCount(cell(ColumnComments)); err != nil {
		return Record{}, wrap(ColumnComments, err)
	}
	if rec.Engagement, err = parseRate(cell(ColumnEngagement)); err != nil {
		return Record{}, wrap(ColumnEngagement, err)
	}
	return rec, nil
}

// parseCount 接受 "1200" 或导出工具写出的 "1200.0"。
func parseCount(raw string) (int64, error) {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n < 0 {
			return 0, errNegative
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errNotInteger
	}
	if f < 0 {
		return 0, errNegative
	}
	// 2^63 本身在 float64 中可精确表示，但已超出 int64。
	if f >= math.MaxInt64 {
		return 0, errCountRange
	}
	return int64(f), nil
}

func parseRate(raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || f < 0 || f > 1 {
		return 0, errRateRange
	}
	return f, nil
}

func parseFlag(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "1", "1.0", "true":
		return true, nil
	case "0", "0.0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid flag %q (want 0 or 1)", raw)
	}
}

func parsePublished(raw string) (time.Time, error) {
	for _, layout := range publishedLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

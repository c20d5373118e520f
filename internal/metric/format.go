package metric

import (
	"math"
	"strconv"
)

// NoData 是空集合平均值等无数据场景的展示文本。
const NoData = "N/A"

const (
	million  = 1_000_000
	thousand = 1_000
)

// Format 按指标规则格式化数值：engagement 显示为两位小数百分比，其余按 K/M 缩写。
func Format(value float64, m Metric) string {
	return m.Format(value)
}

func (m Metric) Format(value float64) string {
	if math.IsNaN(value) {
		return NoData
	}
	if m.IsRate() {
		return strconv.FormatFloat(value*100, 'f', 2, 64) + "%"
	}
	return Abbreviate(value)
}

// Abbreviate 以 K/M 后缀压缩数值；阈值比较取绝对值，符号保留。
func Abbreviate(value float64) string {
	abs := math.Abs(value)
	switch {
	case abs >= million:
		return strconv.FormatFloat(value/million, 'f', 1, 64) + "M"
	case abs >= thousand:
		return strconv.FormatFloat(value/thousand, 'f', 1, 64) + "K"
	default:
		return strconv.FormatFloat(value, 'f', 0, 64)
	}
}

package calendar

import "time"

const weekStartLayout = "2006-01-02"

// NormalizeWeekStart 将任意时间归一化到它所在周的周一零点（UTC）
// 所有涉及 WeekStart 的比较都必须先经过归一化，不能直接使用用户点击的日期
func NormalizeWeekStart(t time.Time) time.Time {
	t = t.UTC()
	// time.Weekday 以周日为 0，这里换算成距离周一的偏移量
	offset := (int(t.Weekday()) + 6) % 7
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, -offset)
}

// ParseWeekStart 解析 "2006-01-02" 格式的日期并归一化到周一
func ParseWeekStart(s string) (time.Time, error) {
	t, err := time.Parse(weekStartLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return NormalizeWeekStart(t), nil
}

func FormatWeekStart(t time.Time) string {
	return t.UTC().Format(weekStartLayout)
}

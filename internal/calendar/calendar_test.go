package calendar

import (
	"testing"
	"time"
)

func TestNormalizeWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"周一保持不变", time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), "2024-06-03"},
		{"周一非零点", time.Date(2024, 6, 3, 15, 30, 0, 0, time.UTC), "2024-06-03"},
		{"周三", time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC), "2024-06-03"},
		{"周日归到上一个周一", time.Date(2024, 6, 9, 23, 59, 59, 0, time.UTC), "2024-06-03"},
		{"下一个周一", time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), "2024-06-10"},
		{"跨月", time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC), "2024-07-01"},
		{"跨年", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "2024-12-30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeWeekStart(tt.in)
			if FormatWeekStart(got) != tt.want {
				t.Errorf("NormalizeWeekStart(%v) = %v, want %v", tt.in, FormatWeekStart(got), tt.want)
			}
			if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
				t.Errorf("NormalizeWeekStart(%v) 不是零点: %v", tt.in, got)
			}
		})
	}
}

func TestParseWeekStart(t *testing.T) {
	got, err := ParseWeekStart("2024-06-05")
	if err != nil {
		t.Fatalf("ParseWeekStart 返回错误: %v", err)
	}
	if FormatWeekStart(got) != "2024-06-03" {
		t.Errorf("ParseWeekStart(\"2024-06-05\") = %v, want 2024-06-03", FormatWeekStart(got))
	}

	if _, err := ParseWeekStart("not-a-date"); err == nil {
		t.Error("ParseWeekStart 应该拒绝无效日期")
	}
}

package unified

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	tm, err := time.ParseInLocation("2006-01-02 15:04", value, time.Local)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return tm
}

func TestResolveTradeDate_LiveMode(t *testing.T) {
	tests := []struct {
		name string
		now  string
		want string
	}{
		// 2024-01-06 是周六，2024-01-05 是周五
		{"saturday falls back to friday", "2024-01-06 14:00", "20240105"},
		{"sunday falls back to friday", "2024-01-07 10:00", "20240105"},
		// 2024-01-08 周一
		{"monday pre-open falls back to friday", "2024-01-08 09:00", "20240105"},
		{"monday 09:29 still pre-open", "2024-01-08 09:29", "20240105"},
		{"monday 10:00 uses today", "2024-01-08 10:00", "20240108"},
		{"lunch break uses today", "2024-01-08 12:00", "20240108"},
		{"post close uses today", "2024-01-08 16:30", "20240108"},
		{"midweek pre-open falls back one day", "2024-01-10 08:00", "20240109"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveTradeDate(mustTime(t, tt.now), "")
			if got != tt.want {
				t.Errorf("resolveTradeDate(%s) = %s, want %s", tt.now, got, tt.want)
			}
		})
	}
}

func TestResolveTradeDate_HistoricalMode(t *testing.T) {
	now := mustTime(t, "2024-03-15 10:00")
	tests := []struct {
		analysisDate string
		want         string
	}{
		{"20240105", "20240105"}, // 周五，原样使用
		{"20240106", "20240105"}, // 周六回退
		{"20240107", "20240105"}, // 周日回退
		{"20240108", "20240108"}, // 周一
	}
	for _, tt := range tests {
		if got := resolveTradeDate(now, tt.analysisDate); got != tt.want {
			t.Errorf("resolveTradeDate(analysis=%s) = %s, want %s", tt.analysisDate, got, tt.want)
		}
	}
}

func TestResolveTradeDate_BadAnalysisDateFallsBackToLive(t *testing.T) {
	now := mustTime(t, "2024-01-08 10:00")
	if got := resolveTradeDate(now, "not-a-date"); got != "20240108" {
		t.Errorf("unparseable analysis date should use live mode, got %s", got)
	}
}

func TestIsMarketOpen(t *testing.T) {
	tests := []struct {
		now  string
		want bool
	}{
		{"2024-01-08 09:29", false},
		{"2024-01-08 09:30", true},
		{"2024-01-08 11:30", true},
		{"2024-01-08 12:00", false},
		{"2024-01-08 13:00", true},
		{"2024-01-08 15:00", true},
		{"2024-01-08 15:01", false},
		{"2024-01-06 10:00", false}, // 周六
	}
	for _, tt := range tests {
		if got := isMarketOpen(mustTime(t, tt.now)); got != tt.want {
			t.Errorf("isMarketOpen(%s) = %v, want %v", tt.now, got, tt.want)
		}
	}
}

package datasource

import (
	"testing"

	"stock-research-backend/internal/model"
)

func TestSortBarsByDate_SortsAndDedupes(t *testing.T) {
	bars := []model.Bar{
		{Date: "20240103", Close: 3},
		{Date: "20240101", Close: 1},
		{Date: "20240102", Close: 2},
		{Date: "20240102", Close: 2.5},
	}
	out := sortBarsByDate(bars)
	want := []string{"20240101", "20240102", "20240103"}
	if len(out) != len(want) {
		t.Fatalf("bar count = %d, want %d", len(out), len(want))
	}
	for i, date := range want {
		if out[i].Date != date {
			t.Errorf("bar[%d].Date = %s, want %s", i, out[i].Date, date)
		}
	}
	// 重复日期保留先出现的行
	if out[1].Close != 2 {
		t.Errorf("duplicate date kept Close = %f, want 2", out[1].Close)
	}
}

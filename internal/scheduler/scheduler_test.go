package scheduler

import (
	"testing"

	"stock-research-backend/internal/stocklist"
)

func TestRegister_CronExpression(t *testing.T) {
	s := New(stocklist.NewService(nil, nil))
	if err := s.Register("0 0 8 * * 1-5"); err != nil {
		t.Errorf("valid cron rejected: %v", err)
	}
	if err := s.Register("not a cron"); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

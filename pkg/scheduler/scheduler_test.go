package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/file2crashes/pkg/scheduler"
)

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()

	s, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	s.Start()
	t.Cleanup(func() { _ = s.Stop() })

	return s
}

// TestAddCronDuplicate 测试同名任务不可重复注册.
func TestAddCronDuplicate(t *testing.T) {
	s := newScheduler(t)
	noop := func(context.Context) error { return nil }

	if err := s.AddCron("dup", "0 0 * * *", noop, context.Background()); err != nil {
		t.Fatalf("AddCron: %v", err)
	}

	if err := s.AddCron("dup", "0 0 * * *", noop, context.Background()); err == nil {
		t.Fatal("expected duplicate error")
	}

	if got := len(s.GetJobInfos()); got != 1 {
		t.Errorf("expected 1 job, got %d", got)
	}
}

// TestRunNow 测试立即执行与状态记录.
func TestRunNow(t *testing.T) {
	s := newScheduler(t)
	done := make(chan struct{}, 1)

	err := s.AddCron("ok", "0 0 1 1 *", func(context.Context) error {
		done <- struct{}{}
		return nil
	}, context.Background())
	if err != nil {
		t.Fatalf("AddCron: %v", err)
	}

	if err := s.RunNow("ok"); err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		info, err := s.GetJobInfoByName("ok")
		if err != nil {
			t.Fatalf("GetJobInfoByName: %v", err)
		}

		if !info.LastSuccess.IsZero() {
			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Error("LastSuccess was not recorded")
}

// TestRunNowError 测试任务错误写入状态.
func TestRunNowError(t *testing.T) {
	s := newScheduler(t)

	err := s.AddCron("bad", "0 0 1 1 *", func(context.Context) error {
		return errors.New("remote unreachable")
	}, context.Background())
	if err != nil {
		t.Fatalf("AddCron: %v", err)
	}

	if err := s.RunNow("bad"); err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		info, _ := s.GetJobInfoByName("bad")
		if info.Status == scheduler.StatusError && info.Error == "remote unreachable" {
			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Error("error status was not recorded")
}

// TestRunNowUnknown 测试未知任务.
func TestRunNowUnknown(t *testing.T) {
	s := newScheduler(t)

	if err := s.RunNow("missing"); err == nil {
		t.Fatal("expected error for unknown job")
	}
}

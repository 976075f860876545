package scheduler

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAddTaskReplacesExisting(t *testing.T) {
	s := New(testLogger())
	s.Start()
	defer s.Stop()

	var first, second atomic.Int32

	if err := s.AddTask("x", 30*time.Millisecond, func() { first.Add(1) }); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if first.Load() == 0 {
		t.Fatal("first task must tick before replacement")
	}

	// Повторная регистрация того же id с другим периодом: старый таймер снимается,
	// активен только новый
	if err := s.AddTask("x", 50*time.Millisecond, func() { second.Add(1) }); err != nil {
		t.Fatal(err)
	}
	firstAfterReplace := first.Load()

	time.Sleep(120 * time.Millisecond)
	if first.Load() != firstAfterReplace {
		t.Fatal("replaced task must stop ticking")
	}
	if second.Load() == 0 {
		t.Fatal("replacement task must tick")
	}

	ids := s.TaskIDs()
	if len(ids) != 1 || ids[0] != "x" {
		t.Fatalf("expected single task id 'x', got %v", ids)
	}
}

func TestStopTask(t *testing.T) {
	s := New(testLogger())
	s.Start()
	defer s.Stop()

	var count atomic.Int32
	if err := s.AddTask("x", 20*time.Millisecond, func() { count.Add(1) }); err != nil {
		t.Fatal(err)
	}
	time.Sleep(70 * time.Millisecond)

	s.StopTask("x")
	if s.HasTask("x") {
		t.Fatal("stopped task must be deregistered")
	}

	stopped := count.Load()
	time.Sleep(80 * time.Millisecond)
	if count.Load() != stopped {
		t.Fatal("stopped task must not tick")
	}

	// Повторный stop несуществующего id - не ошибка
	s.StopTask("x")
}

func TestStopAllTasks(t *testing.T) {
	s := New(testLogger())
	s.Start()
	defer s.Stop()

	_ = s.AddTask("a", time.Hour, func() {})
	_ = s.AddTask("b", time.Hour, func() {})

	s.StopAllTasks()
	if ids := s.TaskIDs(); len(ids) != 0 {
		t.Fatalf("expected no tasks after StopAllTasks, got %v", ids)
	}
}

func TestPanicInCallbackDoesNotKillTimer(t *testing.T) {
	s := New(testLogger())
	s.Start()
	defer s.Stop()

	var count atomic.Int32
	err := s.AddTask("panicky", 20*time.Millisecond, func() {
		count.Add(1)
		panic("boom")
	})
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(120 * time.Millisecond)
	if count.Load() < 2 {
		t.Fatalf("timer must survive a panicking tick, got %d runs", count.Load())
	}
	if !s.HasTask("panicky") {
		t.Fatal("task must stay registered after a panic")
	}
}

func TestRunTaskNow(t *testing.T) {
	s := New(testLogger())
	s.Start()
	defer s.Stop()

	var count atomic.Int32
	if err := s.AddTask("manual", time.Hour, func() { count.Add(1) }); err != nil {
		t.Fatal(err)
	}

	time.Sleep(50 * time.Millisecond)
	before := count.Load()

	if err := s.RunTaskNow("manual"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if count.Load() != before+1 {
		t.Fatalf("expected one extra run, before=%d after=%d", before, count.Load())
	}

	if err := s.RunTaskNow("missing"); err == nil {
		t.Fatal("running an unknown task must fail")
	}
}

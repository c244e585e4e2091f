package transmit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestSchedulerSpawnAfterStart(t *testing.T) {
	s := NewScheduler()
	if err := s.Spawn(Elevated, "consumer", blockUntilDone); err != nil {
		t.Fatal(err)
	}
	if err := s.Spawn(Normal, "ui", blockUntilDone); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Spawn(Normal, "late", blockUntilDone); !errors.Is(err, ErrStarted) {
		t.Errorf("Expected ErrStarted, got %v", err)
	}
	if err := s.Start(ctx); !errors.Is(err, ErrStarted) {
		t.Errorf("Expected ErrStarted on second Start, got %v", err)
	}

	cancel()
	s.Wait()
}

func TestSchedulerTasks(t *testing.T) {
	s := NewScheduler()
	s.Spawn(Elevated, "ops producer", blockUntilDone)
	s.Spawn(Elevated, "ops consumer", blockUntilDone)
	s.Spawn(Normal, "input", blockUntilDone)

	if got := s.Tasks(Elevated); strings.Join(got, ",") != "ops producer,ops consumer" {
		t.Errorf("Elevated tasks %v", got)
	}
	if got := s.Tasks(Normal); len(got) != 1 || got[0] != "input" {
		t.Errorf("Normal tasks %v", got)
	}
}

func TestSchedulerTaskErrorIsFatal(t *testing.T) {
	fatal := recordFatal(t)
	s := NewScheduler()
	s.Spawn(Normal, "display", func(ctx context.Context) error {
		return errors.New("spi timeout")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	if msg := fatal.wait(t, time.Second); msg != "normal task display: spi timeout" {
		t.Errorf("Unexpected fatal message %q", msg)
	}
	s.Wait()
}

func TestSchedulerEarlyExitIsFatal(t *testing.T) {
	fatal := recordFatal(t)
	s := NewScheduler()
	s.Spawn(Elevated, "ops consumer", func(ctx context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	if msg := fatal.wait(t, time.Second); msg != "elevated task ops consumer: transmit: task exited" {
		t.Errorf("Unexpected fatal message %q", msg)
	}
	s.Wait()
}

func TestSchedulerCancelNotFatal(t *testing.T) {
	fatal := recordFatal(t)
	s := NewScheduler()
	for _, name := range []string{"a", "b", "c"} {
		s.Spawn(Normal, name, blockUntilDone)
	}
	s.Spawn(Elevated, "nil on cancel", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() { s.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Tasks did not stop on cancel")
	}
	fatal.none(t)
}

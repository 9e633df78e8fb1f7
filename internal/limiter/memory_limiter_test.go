package limiter

import (
	"context"
	"testing"
	"time"
)

func TestAdmitRPM_AllowsUpToLimit(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.AdmitRPM(ctx, "k", 3, time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !d.Admitted {
			t.Fatalf("request %d: expected admitted, got denied (count=%d)", i, d.Count)
		}
	}

	d, err := l.AdmitRPM(ctx, "k", 3, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Admitted {
		t.Fatalf("4th request within limit=3: expected denied, got admitted")
	}
	if d.Count != 3 {
		t.Fatalf("expected count=3 on denial, got %d", d.Count)
	}
}

func TestAdmitRPM_WindowExpires(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := l.AdmitRPM(ctx, "k", 2, 20*time.Millisecond); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	d, _ := l.AdmitRPM(ctx, "k", 2, 20*time.Millisecond)
	if d.Admitted {
		t.Fatalf("expected denial while window is full")
	}

	time.Sleep(30 * time.Millisecond)

	d, err := l.AdmitRPM(ctx, "k", 2, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Admitted {
		t.Fatalf("expected admission after window elapsed")
	}
}

func TestAdmitConcurrency_DeniesOverLimitAndReleases(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.AdmitConcurrency(ctx, "c", 2, time.Minute)
		if err != nil || !d.Admitted {
			t.Fatalf("expected admission %d, got %+v err=%v", i, d, err)
		}
	}

	d, err := l.AdmitConcurrency(ctx, "c", 2, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Admitted {
		t.Fatalf("expected denial at concurrency limit")
	}
	if d.Count != 2 {
		t.Fatalf("expected count clamped back to 2, got %d", d.Count)
	}

	if err := l.ReleaseConcurrency(ctx, "c"); err != nil {
		t.Fatalf("unexpected release error: %v", err)
	}

	d, err = l.AdmitConcurrency(ctx, "c", 2, time.Minute)
	if err != nil || !d.Admitted {
		t.Fatalf("expected admission after release, got %+v err=%v", d, err)
	}
}

func TestReleaseConcurrency_ClampsAtZero(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	if err := l.ReleaseConcurrency(ctx, "never-admitted"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, err := l.AdmitConcurrency(ctx, "never-admitted", 1, time.Minute)
	if err != nil || !d.Admitted || d.Count != 1 {
		t.Fatalf("expected fresh admission at count=1, got %+v err=%v", d, err)
	}
}

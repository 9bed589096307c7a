package domain

import (
	"testing"
	"time"
)

func TestCanTransitionTableIsComplete(t *testing.T) {
	statuses := []string{
		StatusScheduled,
		StatusPending,
		StatusInProgress,
		StatusCompleted,
		StatusFailed,
		StatusPaused,
	}

	legal := map[[2]string]bool{
		{StatusScheduled, StatusPending}:     true,
		{StatusPending, StatusInProgress}:    true,
		{StatusPending, StatusPaused}:        true,
		{StatusInProgress, StatusCompleted}:  true,
		{StatusInProgress, StatusFailed}:     true,
		{StatusInProgress, StatusPaused}:     true,
		{StatusFailed, StatusPending}:        true,
		{StatusPaused, StatusPending}:        true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			want := legal[[2]string{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%q, %q) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCanTransitionRejectsCompletedResurrection(t *testing.T) {
	if CanTransition(StatusCompleted, StatusInProgress) {
		t.Error("completed → in_progress must be rejected")
	}
	if CanTransition(StatusCompleted, StatusPending) {
		t.Error("completed → pending must be rejected")
	}
}

func TestBackoffDoublesPerRetry(t *testing.T) {
	base := 30 * time.Second
	max := time.Hour

	cases := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 30 * time.Second},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
	}

	for _, tc := range cases {
		if got := Backoff(base, max, tc.retryCount); got != tc.want {
			t.Errorf("Backoff(retryCount=%d) = %v, want %v", tc.retryCount, got, tc.want)
		}
	}
}

func TestBackoffStrictlyIncreasesUntilCap(t *testing.T) {
	base := 30 * time.Second
	max := time.Hour

	prev := time.Duration(0)
	capped := false
	for retry := 0; retry < 12; retry++ {
		got := Backoff(base, max, retry)
		if got > max {
			t.Fatalf("Backoff(retryCount=%d) = %v exceeds cap %v", retry, got, max)
		}
		if capped {
			if got != max {
				t.Errorf("Backoff(retryCount=%d) = %v, want cap %v once reached", retry, got, max)
			}
			continue
		}
		if got <= prev && got != max {
			t.Errorf("Backoff(retryCount=%d) = %v, not strictly increasing from %v", retry, got, prev)
		}
		if got == max {
			capped = true
		}
		prev = got
	}
	if !capped {
		t.Error("backoff never reached the cap within 12 retries")
	}
}

func TestBackoffSurvivesHugeRetryCounts(t *testing.T) {
	if got := Backoff(30*time.Second, time.Hour, 1_000); got != time.Hour {
		t.Errorf("Backoff(retryCount=1000) = %v, want cap", got)
	}
}

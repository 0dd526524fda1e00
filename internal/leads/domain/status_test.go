package domain

import "testing"

func TestResolveCompletedIsTerminalRegardlessOfAttempts(t *testing.T) {
	for _, attempts := range []int{1, 2, 3, 10} {
		status, err := Resolve(OutcomeCompleted, attempts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status != StatusCompleted {
			t.Fatalf("expected status=%q, got %q", StatusCompleted, status)
		}
	}
}

func TestResolveNoAnswerBelowLimitRequeues(t *testing.T) {
	// Lead with attempts=1 receives no_answer during its second call:
	// attempts becomes 2, 2 < 3, so the lead stays retry-eligible.
	status, err := Resolve(OutcomeNoAnswer, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusPending {
		t.Fatalf("expected status=%q, got %q", StatusPending, status)
	}
}

func TestResolveNoAnswerAtLimitFails(t *testing.T) {
	// Lead with attempts=2 receives no_answer: attempts becomes 3, 3 >= 3.
	status, err := Resolve(OutcomeNoAnswer, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusFailed {
		t.Fatalf("expected status=%q, got %q", StatusFailed, status)
	}
}

func TestResolveFailedOutcomeIsTerminal(t *testing.T) {
	status, err := Resolve(OutcomeFailed, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusFailed {
		t.Fatalf("expected status=%q, got %q", StatusFailed, status)
	}
}

func TestResolveRejectsUnknownOutcome(t *testing.T) {
	if _, err := Resolve(Outcome("busy"), 1); err == nil {
		t.Fatalf("expected error for unknown outcome")
	}
}

func TestResolveNeverYieldsNoAnswerStatus(t *testing.T) {
	for _, outcome := range []Outcome{OutcomeCompleted, OutcomeNoAnswer, OutcomeFailed} {
		for attempts := 1; attempts <= 4; attempts++ {
			status, err := Resolve(outcome, attempts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if status == StatusNoAnswer {
				t.Fatalf("no_answer must never be a stored final status (outcome=%q attempts=%d)", outcome, attempts)
			}
		}
	}
}

func TestIsTerminal(t *testing.T) {
	cases := []struct {
		status   Status
		terminal bool
	}{
		{StatusPending, false},
		{StatusCalling, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusNoAnswer, false},
	}
	for _, tc := range cases {
		if got := IsTerminal(tc.status); got != tc.terminal {
			t.Fatalf("IsTerminal(%q) = %v, want %v", tc.status, got, tc.terminal)
		}
	}
}

func TestClampScoreBounds(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{-5, 0},
		{0, 0},
		{57, 57},
		{100, 100},
		{140, 100},
	}
	for _, tc := range cases {
		if got := ClampScore(tc.in); got != tc.want {
			t.Fatalf("ClampScore(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

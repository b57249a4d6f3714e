package application_test

import (
	"testing"

	"careerforge/internal/application"
)

func TestParseStatus_ValidValues(t *testing.T) {
	valid := []string{"Applied", "Shortlisted", "Interview", "Offered", "Rejected"}
	for _, s := range valid {
		got, err := application.ParseStatus(s)
		if err != nil {
			t.Errorf("ParseStatus(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseStatus_InvalidValue(t *testing.T) {
	for _, s := range []string{"applied", "HIRED", ""} {
		if _, err := application.ParseStatus(s); err == nil {
			t.Errorf("ParseStatus(%q) expected error, got nil", s)
		}
	}
}

func TestIsTransitionAllowed_ValidForward(t *testing.T) {
	cases := []struct {
		from application.Status
		to   application.Status
	}{
		{application.StatusApplied, application.StatusShortlisted},
		{application.StatusShortlisted, application.StatusInterview},
		{application.StatusInterview, application.StatusOffered},
	}
	for _, c := range cases {
		if !application.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be true", c.from, c.to)
		}
	}
}

func TestIsTransitionAllowed_ToRejected(t *testing.T) {
	nonTerminals := []application.Status{
		application.StatusApplied,
		application.StatusShortlisted,
		application.StatusInterview,
	}
	for _, from := range nonTerminals {
		if !application.IsTransitionAllowed(from, application.StatusRejected) {
			t.Errorf("IsTransitionAllowed(%s → Rejected) should be true", from)
		}
	}
}

func TestIsTransitionAllowed_NoSkippingOrBacktracking(t *testing.T) {
	cases := []struct {
		from application.Status
		to   application.Status
	}{
		{application.StatusApplied, application.StatusInterview},
		{application.StatusApplied, application.StatusOffered},
		{application.StatusShortlisted, application.StatusApplied},
		{application.StatusInterview, application.StatusShortlisted},
	}
	for _, c := range cases {
		if application.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false", c.from, c.to)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	all := []application.Status{
		application.StatusApplied,
		application.StatusShortlisted,
		application.StatusInterview,
		application.StatusOffered,
		application.StatusRejected,
	}
	for _, terminal := range []application.Status{application.StatusOffered, application.StatusRejected} {
		if !application.IsTerminal(terminal) {
			t.Errorf("IsTerminal(%s) should be true", terminal)
		}
		for _, to := range all {
			if application.IsTransitionAllowed(terminal, to) {
				t.Errorf("IsTransitionAllowed(%s → %s) should be false", terminal, to)
			}
		}
	}
}

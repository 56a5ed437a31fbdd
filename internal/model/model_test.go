package model

import (
	"errors"
	"testing"
	"time"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		score, total int
		want         float64
	}{
		{7, 10, 70.0},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{1, 2, 50.0},
		{1, 16, 6.3},
		{0, 5, 0},
		{5, 5, 100},
		{3, 0, 0},
	}
	for _, tt := range tests {
		got := Percent(tt.score, tt.total)
		if got != tt.want {
			t.Errorf("Percent(%d, %d) = %v, want %v", tt.score, tt.total, got, tt.want)
		}
	}
}

func TestQuestionMatches(t *testing.T) {
	q := Question{Text: "2+2", Answer: " 4 "}
	if !q.Matches("4") {
		t.Error("expected trimmed answers to match")
	}
	if !q.Matches("  4\t") {
		t.Error("expected surrounding whitespace to be ignored")
	}
	cs := Question{Text: "capital", Answer: "Seoul"}
	if cs.Matches("seoul") {
		t.Error("expected case-sensitive comparison")
	}
}

func TestNewSessionResult(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 5, 30, 0, time.UTC)
	r := NewSessionResult(at, 1, 2)
	if r.Date != "2026-03-01 09:05" {
		t.Errorf("expected date '2026-03-01 09:05', got %q", r.Date)
	}
	if r.Percent != 50.0 {
		t.Errorf("expected percent 50.0, got %v", r.Percent)
	}
}

func TestValidateQuestions(t *testing.T) {
	idx, err := ValidateQuestions([]Question{{Text: "a", Answer: "b"}, {Text: "c"}})
	if err == nil {
		t.Fatal("expected validation error for missing answer")
	}
	if idx != 1 {
		t.Errorf("expected failing index 1, got %d", idx)
	}
	if _, err := ValidateQuestions([]Question{{Text: "a", Answer: "b"}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateResults(t *testing.T) {
	tests := []struct {
		name    string
		result  SessionResult
		wantErr bool
	}{
		{"valid", SessionResult{Date: "2026-01-01 10:00", Score: 1, Total: 2, Percent: 50}, false},
		{"missing date", SessionResult{Score: 1, Total: 2, Percent: 50}, true},
		{"zero total", SessionResult{Date: "x", Score: 0, Total: 0}, true},
		{"score above total", SessionResult{Date: "x", Score: 3, Total: 2, Percent: 100}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateResults([]SessionResult{tt.result})
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateResults() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStorageErrorUnwrap(t *testing.T) {
	inner := errors.New("permission denied")
	err := error(&StorageError{Op: "write", Path: "/x", Err: inner})
	if !errors.Is(err, inner) {
		t.Error("expected StorageError to unwrap to inner error")
	}
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "write" {
		t.Errorf("expected errors.As to find StorageError, got %v", se)
	}
}

func TestCorrupt(t *testing.T) {
	err := Corrupt("questions.json", errors.New("unexpected EOF"))
	if !errors.Is(err, ErrCorruptData) {
		t.Errorf("expected ErrCorruptData, got %v", err)
	}
}

// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package prefilter

import (
	"testing"
	"time"
)

func TestEvaluate_Personal(t *testing.T) {
	f := New()

	tests := []struct {
		name     string
		text     string
		wantRule string
	}{
		{
			name:     "happy anecdote",
			text:     "I'm so happy today, my friend got me coffee",
			wantRule: "first_person_anecdote",
		},
		{
			name:     "opinion marker",
			text:     "I think the new phone is overpriced",
			wantRule: "opinion",
		},
		{
			name:     "in my opinion",
			text:     "In my opinion this movie deserved the award",
			wantRule: "opinion",
		},
		{
			name:     "first person emotion",
			text:     "I love how quiet this neighborhood is",
			wantRule: "first_person_emotion",
		},
		{
			name:     "too short",
			text:     "hello there",
			wantRule: "too_short",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.Evaluate(tt.text)
			if !res.IsPersonal {
				t.Fatalf("Evaluate(%q).IsPersonal = false, want true", tt.text)
			}
			if res.Rule != tt.wantRule {
				t.Errorf("Rule = %q, want %q", res.Rule, tt.wantRule)
			}
			if res.Confidence <= 0 {
				t.Error("matched rule should carry a positive confidence")
			}
		})
	}
}

func TestEvaluate_NotPersonal(t *testing.T) {
	f := New()

	tests := []string{
		"The Eiffel Tower is located in Paris",
		"Water boils at 100 degrees Celsius at sea level",
		"The 2020 Summer Olympics were held in Tokyo in 2021",
		"Mount Everest is the tallest mountain on Earth",
	}

	for _, text := range tests {
		res := f.Evaluate(text)
		if res.IsPersonal {
			t.Errorf("Evaluate(%q) flagged personal via rule %q, want not personal", text, res.Rule)
		}
		if res.Confidence != 1.0 {
			t.Errorf("default result confidence = %v, want 1.0", res.Confidence)
		}
	}
}

func TestEvaluate_FirstMatchWins(t *testing.T) {
	f := New()

	// Matches both "opinion" and "first_person_anecdote"; opinion is
	// ordered first among the pattern rules.
	res := f.Evaluate("I think my friend was right about the weather yesterday")
	if !res.IsPersonal {
		t.Fatal("expected personal")
	}
	if res.Rule != "opinion" {
		t.Errorf("Rule = %q, want opinion (first matching rule)", res.Rule)
	}
}

func TestEvaluate_IsFast(t *testing.T) {
	f := New()

	start := time.Now()
	for i := 0; i < 1000; i++ {
		f.Evaluate("The Great Wall of China is visible from space with the naked eye")
	}
	elapsed := time.Since(start)

	// 1000 evaluations should stay well under the few-millisecond
	// per-call budget.
	if elapsed > 500*time.Millisecond {
		t.Errorf("1000 evaluations took %v", elapsed)
	}
}

func TestGetMetrics(t *testing.T) {
	f := New()
	f.Evaluate("I think this is great")
	f.Evaluate("The sun is a star and the moon is not")

	m := f.GetMetrics()
	if m["evaluated"].(int64) != 2 {
		t.Errorf("evaluated = %v, want 2", m["evaluated"])
	}
	if m["matched"].(int64) != 1 {
		t.Errorf("matched = %v, want 1", m["matched"])
	}
}

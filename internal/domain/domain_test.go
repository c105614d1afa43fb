package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAnswer_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"single", `{"questionId":"q1","answer":"B"}`, []string{"B"}, false},
		{"multiple", `{"questionId":"q1","answer":["A","C"]}`, []string{"A", "C"}, false},
		{"null", `{"questionId":"q1","answer":null}`, nil, false},
		{"number", `{"questionId":"q1","answer":3}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Answer
			err := json.Unmarshal([]byte(tt.input), &a)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if a.QuestionID != "q1" {
				t.Errorf("QuestionID = %q, want q1", a.QuestionID)
			}
			if len(a.Values) != len(tt.want) {
				t.Fatalf("Values = %v, want %v", a.Values, tt.want)
			}
			for i := range tt.want {
				if a.Values[i] != tt.want[i] {
					t.Errorf("Values[%d] = %q, want %q", i, a.Values[i], tt.want[i])
				}
			}
		})
	}
}

func TestAnswer_MarshalJSON_SingleValueIsString(t *testing.T) {
	data, err := json.Marshal(Answer{QuestionID: "q1", Values: []string{"true"}})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"questionId":"q1","answer":"true"}` {
		t.Errorf("Marshal() = %s", data)
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"not_started", "next", "completed", "needs_review"} {
		if _, err := ParseStatus(s); err != nil {
			t.Errorf("ParseStatus(%q) error = %v", s, err)
		}
	}
	if _, err := ParseStatus("done"); err == nil {
		t.Error("ParseStatus(done) should fail")
	}
}

func TestParseDifficulty_DefaultsToMedium(t *testing.T) {
	d, err := ParseDifficulty("")
	if err != nil {
		t.Fatalf("ParseDifficulty() error = %v", err)
	}
	if d != DifficultyMedium {
		t.Errorf("ParseDifficulty(\"\") = %q, want medium", d)
	}
}

func TestRoadmap_Edges(t *testing.T) {
	r := Roadmap{Nodes: []Node{
		{ID: "a"},
		{ID: "b", Prerequisites: []string{"a"}},
		{ID: "c", Prerequisites: []string{"a", "b"}},
	}}

	edges := r.Edges()
	if len(edges) != 3 {
		t.Fatalf("Edges() = %d edges, want 3", len(edges))
	}
	if edges[0] != (Edge{From: "a", To: "b", Type: EdgePrerequisite}) {
		t.Errorf("edges[0] = %+v", edges[0])
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize([]NodeProgress{
		{Status: StatusCompleted},
		{Status: StatusCompleted},
		{Status: StatusNext},
		{Status: StatusNeedsReview},
		{Status: StatusNotStarted},
	})
	want := ProgressSummary{TotalNodes: 5, CompletedNodes: 2, NextNodes: 1, NeedsReviewNodes: 1}
	if got != want {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}
}

func TestDay_TruncatesToUTCDate(t *testing.T) {
	loc := time.FixedZone("MYT", 8*3600)
	got := Day(time.Date(2026, 3, 4, 23, 30, 0, 0, loc))
	want := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Day() = %v, want %v", got, want)
	}
}

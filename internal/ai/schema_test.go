package ai

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here you go:\n{\"a\":{\"b\":2}}\nHope this helps!", `{"a":{"b":2}}`},
		{"no object", "sorry", "sorry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(extractJSON(tt.input)); got != tt.want {
				t.Errorf("extractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		raw     string
		wantErr bool
	}{
		{
			name:   "valid evaluation",
			schema: evaluationSchema,
			raw:    `{"percentage": 80, "node_scores": [{"node_id": "a", "score": 80, "recommended_action": "continue"}]}`,
		},
		{
			name:    "evaluation score out of range",
			schema:  evaluationSchema,
			raw:     `{"percentage": 80, "node_scores": [{"node_id": "a", "score": 180}]}`,
			wantErr: true,
		},
		{
			name:    "evaluation unknown action",
			schema:  evaluationSchema,
			raw:     `{"percentage": 80, "node_scores": [{"node_id": "a", "score": 80, "recommended_action": "skip"}]}`,
			wantErr: true,
		},
		{
			name:    "evaluation missing node_scores",
			schema:  evaluationSchema,
			raw:     `{"percentage": 80}`,
			wantErr: true,
		},
		{
			name:   "valid assessment",
			schema: assessmentSchema,
			raw:    `{"questions": [{"node_id": "a", "question": "2+2?", "question_type": "short_answer"}]}`,
		},
		{
			name:    "assessment bad question type",
			schema:  assessmentSchema,
			raw:     `{"questions": [{"node_id": "a", "question": "2+2?", "question_type": "essay"}]}`,
			wantErr: true,
		},
		{
			name:    "roadmap without nodes",
			schema:  roadmapSchema,
			raw:     `{"title": "x", "nodes": []}`,
			wantErr: true,
		},
		{
			name:    "not JSON",
			schema:  studyPlanSchema,
			raw:     `daily_schedule: []`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var invalid *InvalidResponseError
				if !errors.As(err, &invalid) {
					t.Fatalf("error = %T, want *InvalidResponseError", err)
				}
				if invalid.Schema != tt.schema.Name {
					t.Errorf("Schema = %q, want %q", invalid.Schema, tt.schema.Name)
				}
			}
		})
	}
}

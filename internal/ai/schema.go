package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a named JSON Schema document that model replies must satisfy.
type Schema struct {
	Name       string
	Definition string
}

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*gojsonschema.Schema

// Validate checks raw against the schema. Failures are returned as
// *InvalidResponseError.
func (s Schema) Validate(raw []byte) error {
	if !json.Valid(raw) {
		return &InvalidResponseError{Schema: s.Name, Content: raw, Err: errors.New("reply is not valid JSON")}
	}

	compiled, err := s.compiled()
	if err != nil {
		return &InvalidResponseError{Schema: s.Name, Content: raw, Err: fmt.Errorf("compile schema: %w", err)}
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &InvalidResponseError{Schema: s.Name, Content: raw, Err: err}
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			msgs = append(msgs, re.String())
		}
		return &InvalidResponseError{
			Schema:  s.Name,
			Content: raw,
			Err:     fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; ")),
		}
	}
	return nil
}

func (s Schema) compiled() (*gojsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(s.Name); ok {
		return cached.(*gojsonschema.Schema), nil
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s.Definition))
	if err != nil {
		return nil, err
	}
	schemaCache.Store(s.Name, compiled)
	return compiled, nil
}

// extractJSON strips markdown code fences and any prose around the
// outermost JSON object.
func extractJSON(content string) []byte {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return []byte(s)
}

var roadmapSchema = Schema{
	Name: "roadmap",
	Definition: `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["nodes"],
  "properties": {
    "title": {"type": "string"},
    "nodes": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "title", "estimated_hours"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "title": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "prerequisites": {"type": "array", "items": {"type": "string"}},
          "estimated_hours": {"type": "number", "exclusiveMinimum": 0},
          "position": {
            "type": "object",
            "properties": {"x": {"type": "number"}, "y": {"type": "number"}}
          }
        }
      }
    }
  }
}`,
}

var assessmentSchema = Schema{
	Name: "assessment",
	Definition: `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["questions"],
  "properties": {
    "estimated_minutes": {"type": "integer", "minimum": 1},
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["node_id", "question", "question_type"],
        "properties": {
          "id": {"type": "string"},
          "node_id": {"type": "string", "minLength": 1},
          "question": {"type": "string", "minLength": 1},
          "question_type": {"enum": ["multiple_choice", "short_answer", "true_false"]},
          "options": {"type": "array", "items": {"type": "string"}},
          "points": {"type": "integer", "minimum": 1, "maximum": 100}
        }
      }
    }
  }
}`,
}

var evaluationSchema = Schema{
	Name: "evaluation",
	Definition: `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["node_scores", "percentage"],
  "properties": {
    "percentage": {"type": "number", "minimum": 0, "maximum": 100},
    "overall_feedback": {"type": "string"},
    "node_scores": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["node_id", "score"],
        "properties": {
          "node_id": {"type": "string", "minLength": 1},
          "score": {"type": "number", "minimum": 0, "maximum": 100},
          "feedback": {"type": "string"},
          "recommended_action": {"enum": ["continue", "review", "master"]}
        }
      }
    }
  }
}`,
}

var studyPlanSchema = Schema{
	Name: "study_plan",
	Definition: `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["daily_schedule"],
  "properties": {
    "daily_schedule": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["day", "activities"],
        "properties": {
          "day": {"type": "integer", "minimum": 1},
          "date": {"type": "string"},
          "total_study_minutes": {"type": "number", "minimum": 0},
          "daily_goal": {"type": "string"},
          "activities": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["node_id", "estimated_minutes"],
              "properties": {
                "node_id": {"type": "string"},
                "activity_type": {"type": "string"},
                "estimated_minutes": {"type": "number", "minimum": 0},
                "description": {"type": "string"}
              }
            }
          }
        }
      }
    },
    "summary": {
      "type": "object",
      "properties": {
        "total_days": {"type": "integer"},
        "total_hours": {"type": "number"},
        "estimated_completion_date": {"type": "string"}
      }
    }
  }
}`,
}

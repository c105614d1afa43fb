package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Difficulty is the requested assessment difficulty.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty validates a difficulty, defaulting empty input to medium.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case "":
		return DifficultyMedium, nil
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

// QuestionType is the answer format of a question.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionTrueFalse      QuestionType = "true_false"
)

// Question is one generated assessment question.
type Question struct {
	ID       string       `json:"id"`
	NodeID   string       `json:"nodeId"`
	Question string       `json:"question"`
	Type     QuestionType `json:"type"`
	Options  []string     `json:"options,omitempty"`
	Points   int          `json:"points"`
}

// Answer is a learner's answer. Multiple-choice answers may select several
// options, so the value is either a string or a list of strings.
type Answer struct {
	QuestionID string   `json:"questionId"`
	Values     []string `json:"-"`
}

type answerJSON struct {
	QuestionID string          `json:"questionId"`
	Answer     json.RawMessage `json:"answer"`
}

// MarshalJSON encodes a single value as a string and several as a list.
func (a Answer) MarshalJSON() ([]byte, error) {
	var value any = a.Values
	if len(a.Values) == 1 {
		value = a.Values[0]
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(answerJSON{QuestionID: a.QuestionID, Answer: raw})
}

// UnmarshalJSON accepts both the string and the list form.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var aj answerJSON
	if err := json.Unmarshal(data, &aj); err != nil {
		return err
	}
	a.QuestionID = aj.QuestionID
	a.Values = nil
	if len(aj.Answer) == 0 || string(aj.Answer) == "null" {
		return nil
	}
	var single string
	if err := json.Unmarshal(aj.Answer, &single); err == nil {
		a.Values = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(aj.Answer, &many); err != nil {
		return fmt.Errorf("answer for %q must be a string or list of strings", aj.QuestionID)
	}
	a.Values = many
	return nil
}

// Action is the evaluator's recommendation for a node.
type Action string

const (
	ActionContinue Action = "continue"
	ActionReview   Action = "review"
	ActionMaster   Action = "master"
)

// NodeScore is the evaluation of one node in a submitted assessment.
type NodeScore struct {
	NodeID            string `json:"nodeId"`
	Score             int    `json:"score"`
	Feedback          string `json:"feedback"`
	RecommendedAction Action `json:"recommendedAction"`
}

// Evaluation is the evaluator's verdict on a submitted assessment.
type Evaluation struct {
	Score           int         `json:"score"`
	NodeScores      []NodeScore `json:"nodeScores"`
	OverallFeedback string      `json:"overallFeedback"`
}

// AssessmentSession is a one-shot quiz over a set of nodes. Completed only
// ever moves from false to true.
type AssessmentSession struct {
	ID           string     `json:"id"`
	EnrollmentID string     `json:"enrollmentId"`
	NodeIDs      []string   `json:"nodeIds"`
	Questions    []Question `json:"questions"`
	Answers      []Answer   `json:"answers,omitempty"`
	Score        *int       `json:"score,omitempty"`
	Completed    bool       `json:"completed"`
	CreatedAt    time.Time  `json:"createdAt"`
}

package service

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"

	"github.com/xxxsen/votegate/internal/config"
)

type QuestionView struct {
	Key        string `json:"key"`
	Title      string `json:"title"`
	PromptHTML string `json:"prompt_html"`
	Required   bool   `json:"required"`
}

// QuestionService serves the ballot questions with their markdown prompts
// rendered once at startup.
type QuestionService struct {
	views []QuestionView
}

func NewQuestionService(questions []config.Question) (*QuestionService, error) {
	md := goldmark.New()
	views := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		var buf bytes.Buffer
		if err := md.Convert([]byte(q.Prompt), &buf); err != nil {
			return nil, fmt.Errorf("render question %s: %w", q.Key, err)
		}
		views = append(views, QuestionView{
			Key:        q.Key,
			Title:      q.Title,
			PromptHTML: buf.String(),
			Required:   q.Required(),
		})
	}
	return &QuestionService{views: views}, nil
}

func (s *QuestionService) List() []QuestionView {
	out := make([]QuestionView, len(s.views))
	copy(out, s.views)
	return out
}

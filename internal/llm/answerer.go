package llm

import (
	"context"
	"fmt"
	"strings"
)

// Answerer produces assignment Q&A answers. The real integration calls an
// external model; this stub templates a deterministic answer so the rest of
// the pipeline (persistence, caching, the dashboard) works end to end.
type Answerer struct{}

func NewAnswerer() *Answerer {
	return &Answerer{}
}

func (a *Answerer) Answer(_ context.Context, assignmentTitle, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("empty question")
	}
	return fmt.Sprintf(
		"This assignment (%s) appears to be about a detailed analysis. Based on your question, you should focus on the core concepts presented in the material.",
		assignmentTitle,
	), nil
}

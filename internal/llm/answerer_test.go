package llm

import (
	"context"
	"strings"
	"testing"
)

func TestAnswerMentionsAssignment(t *testing.T) {
	answerer := NewAnswerer()

	answer, err := answerer.Answer(context.Background(), "Graph Theory Problem Set", "How many exercises are required?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !strings.Contains(answer, "Graph Theory Problem Set") {
		t.Fatalf("answer does not reference the assignment: %q", answer)
	}
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	answerer := NewAnswerer()

	if _, err := answerer.Answer(context.Background(), "Anything", "   "); err == nil {
		t.Fatal("expected error for empty question")
	}
}

package client

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/danmuck/caseroom/internal/command"
	"github.com/danmuck/caseroom/internal/protocol"
	"github.com/danmuck/caseroom/internal/testutil/testlog"
)

func twoSlotQuestion() *command.ExamQuestion {
	return &command.ExamQuestion{
		Index:  0,
		Total:  1,
		Prompt: "pick",
		Slots: map[string]command.Slot{
			"slotB": {Choices: []command.Choice{{ID: "X", Text: "x"}, {ID: "Y", Text: "y"}}},
			"slotA": {Choices: []command.Choice{{ID: "P", Text: "p"}, {ID: "Q", Text: "q"}}},
		},
	}
}

func TestBindSortsSlotsBeforePositionalBinding(t *testing.T) {
	testlog.Start(t)
	q := twoSlotQuestion()
	for i := 0; i < 20; i++ {
		got, err := Bind(q, []int{2, 1})
		if err != nil {
			t.Fatalf("bind: %v", err)
		}
		want := map[string]string{"slotA": "Q", "slotB": "X"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestBindRejectsCountAndRange(t *testing.T) {
	testlog.Start(t)
	q := twoSlotQuestion()
	if _, err := Bind(q, []int{1}); !errors.Is(err, protocol.ErrValidation) {
		t.Fatalf("expected count mismatch rejection, got %v", err)
	}
	if _, err := Bind(q, []int{1, 3}); !errors.Is(err, protocol.ErrValidation) {
		t.Fatalf("expected out of range rejection, got %v", err)
	}
	if _, err := Bind(q, []int{0, 1}); !errors.Is(err, protocol.ErrValidation) {
		t.Fatalf("expected zero index rejection, got %v", err)
	}
}

func TestExamAnswerBuildsSubmission(t *testing.T) {
	testlog.Start(t)
	exam := &Exam{}
	f := Factory{Exam: exam}
	if _, err := f.Build(Parse("submit exam answer 1 2 2"), command.RoleGuest, command.StateExamInProgress); !errors.Is(err, protocol.ErrValidation) {
		t.Fatalf("expected rejection without open question, got %v", err)
	}

	exam.SetQuestion(twoSlotQuestion())
	cmd, err := f.Build(Parse("submit exam answer 1 2, 2"), command.RoleGuest, command.StateExamInProgress)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	sub, ok := cmd.(*command.SubmitExamAnswer)
	if !ok {
		t.Fatalf("expected SubmitExamAnswer, got %T", cmd)
	}
	if sub.QuestionIndex != 0 || sub.Answers["slotA"] != "Q" || sub.Answers["slotB"] != "Y" {
		t.Fatalf("unexpected submission %+v", sub)
	}

	if _, err := f.Build(Parse("submit exam answer 2 1 1"), command.RoleGuest, command.StateExamInProgress); !errors.Is(err, protocol.ErrValidation) {
		t.Fatalf("expected rejection for question that is not open, got %v", err)
	}
	if _, err := f.Build(Parse("submit exam answer 1 one two"), command.RoleGuest, command.StateExamInProgress); !errors.Is(err, protocol.ErrValidation) {
		t.Fatalf("expected rejection for non-numeric choices, got %v", err)
	}
}

func TestRenderQuestionNumbersSortedSlots(t *testing.T) {
	testlog.Start(t)
	out := RenderQuestion(twoSlotQuestion())
	a := strings.Index(out, "slot 1, slotA")
	b := strings.Index(out, "slot 2, slotB")
	if a < 0 || b < 0 || a > b {
		t.Fatalf("unexpected rendering:\n%s", out)
	}
}

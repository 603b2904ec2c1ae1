package client

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/danmuck/caseroom/internal/command"
	"github.com/danmuck/caseroom/internal/protocol"
)

// Exam holds the question the host most recently asked. Safe for concurrent use.
type Exam struct {
	mu       sync.Mutex
	question *command.ExamQuestion
}

func (e *Exam) SetQuestion(q *command.ExamQuestion) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.question = q
}

func (e *Exam) Clear() {
	e.SetQuestion(nil)
}

func (e *Exam) Current() (*command.ExamQuestion, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.question, e.question != nil
}

// Answer binds choice text for question number n (1-based) to the open question.
func (e *Exam) Answer(n int, text string) (*command.SubmitExamAnswer, error) {
	q, ok := e.Current()
	if !ok {
		return nil, protocol.Reject(CmdSubmitExamAnswer, "no exam question is open")
	}
	if n != q.Index+1 {
		return nil, protocol.Reject(CmdSubmitExamAnswer, "question %d is not open; answer question %d", n, q.Index+1)
	}
	picks, err := ParsePicks(text)
	if err != nil {
		return nil, err
	}
	answers, err := Bind(q, picks)
	if err != nil {
		return nil, err
	}
	return &command.SubmitExamAnswer{QuestionIndex: q.Index, Answers: answers}, nil
}

// SortedSlots returns slot ids in presentation order.
func SortedSlots(q *command.ExamQuestion) []string {
	ids := make([]string, 0, len(q.Slots))
	for id := range q.Slots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ParsePicks reads 1-based choice indices separated by whitespace or commas.
func ParsePicks(text string) ([]int, error) {
	toks := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(toks) == 0 {
		return nil, protocol.Reject(CmdSubmitExamAnswer, "give one choice number per slot")
	}
	picks := make([]int, 0, len(toks))
	for _, tok := range toks {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, protocol.Reject(CmdSubmitExamAnswer, "%q is not a choice number", tok)
		}
		picks = append(picks, n)
	}
	return picks, nil
}

// Bind maps picks[i] onto the i-th slot in sorted order. The whole submission is
// rejected when the count differs from the slot count or any index is out of range.
func Bind(q *command.ExamQuestion, picks []int) (map[string]string, error) {
	slots := SortedSlots(q)
	if len(picks) != len(slots) {
		return nil, protocol.Reject(CmdSubmitExamAnswer, "expected %d choices, one per slot, got %d", len(slots), len(picks))
	}
	out := make(map[string]string, len(slots))
	for i, id := range slots {
		choices := q.Slots[id].Choices
		pick := picks[i]
		if pick < 1 || pick > len(choices) {
			return nil, protocol.Reject(CmdSubmitExamAnswer, "choice %d for %s is out of range 1-%d", pick, slotName(id, q.Slots[id]), len(choices))
		}
		out[id] = choices[pick-1].ID
	}
	return out, nil
}

// RenderQuestion formats q with slots and choices numbered as Bind expects them.
func RenderQuestion(q *command.ExamQuestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question %d of %d: %s\n", q.Index+1, q.Total, q.Prompt)
	for i, id := range SortedSlots(q) {
		slot := q.Slots[id]
		fmt.Fprintf(&b, "  slot %d, %s:\n", i+1, slotName(id, slot))
		for j, c := range slot.Choices {
			fmt.Fprintf(&b, "    %d) %s\n", j+1, c.Text)
		}
	}
	fmt.Fprintf(&b, "answer with: submit exam answer %d <choice per slot>", q.Index+1)
	return b.String()
}

func slotName(id string, s command.Slot) string {
	if s.Label != "" {
		return s.Label
	}
	return id
}

package casefile

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrInvalidCase = errors.New("casefile: invalid case")

type Case struct {
	ID        string         `toml:"id"`
	Title     string         `toml:"title"`
	Intro     string         `toml:"intro"`
	StartRoom string         `toml:"start_room"`
	Rooms     []Room         `toml:"rooms"`
	Suspects  []Suspect      `toml:"suspects"`
	Tasks     []string       `toml:"tasks"`
	Hints     []string       `toml:"hints"`
	Exam      []ExamQuestion `toml:"exam"`
}

type Room struct {
	ID          string            `toml:"id"`
	Name        string            `toml:"name"`
	Description string            `toml:"description"`
	Exits       map[string]string `toml:"exits"`
	Objects     []Object          `toml:"objects"`
}

type Object struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Deduction   string `toml:"deduction"`
}

type Suspect struct {
	ID        string `toml:"id"`
	Name      string `toml:"name"`
	Room      string `toml:"room"`
	Statement string `toml:"statement"`
}

// ExamQuestion is one final exam prompt with its answer key.
type ExamQuestion struct {
	Prompt string              `toml:"prompt"`
	Slots  map[string]ExamSlot `toml:"slots"`
}

type ExamSlot struct {
	Label   string       `toml:"label"`
	Answer  string       `toml:"answer"`
	Choices []ExamChoice `toml:"choices"`
}

type ExamChoice struct {
	ID   string `toml:"id"`
	Text string `toml:"text"`
}

func (c *Case) Room(id string) (*Room, bool) {
	for i := range c.Rooms {
		if c.Rooms[i].ID == id {
			return &c.Rooms[i], true
		}
	}
	return nil, false
}

func (c *Case) Suspect(name string) (*Suspect, bool) {
	for i := range c.Suspects {
		s := &c.Suspects[i]
		if strings.EqualFold(s.ID, name) || strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return nil, false
}

// SuspectsIn returns the suspects placed in roomID.
func (c *Case) SuspectsIn(roomID string) []Suspect {
	var out []Suspect
	for _, s := range c.Suspects {
		if s.Room == roomID {
			out = append(out, s)
		}
	}
	return out
}

// Object finds an object in the room by id or name, ignoring case.
func (r *Room) Object(name string) (*Object, bool) {
	for i := range r.Objects {
		o := &r.Objects[i]
		if strings.EqualFold(o.ID, name) || strings.EqualFold(o.Name, name) {
			return o, true
		}
	}
	return nil, false
}

// Exit resolves a direction, ignoring case, to the destination room id.
func (r *Room) Exit(direction string) (string, bool) {
	for dir, to := range r.Exits {
		if strings.EqualFold(dir, direction) {
			return to, true
		}
	}
	return "", false
}

// Directions returns the room's exits in sorted order.
func (r *Room) Directions() []string {
	out := make([]string, 0, len(r.Exits))
	for dir := range r.Exits {
		out = append(out, dir)
	}
	sort.Strings(out)
	return out
}

// Validate checks the references a running session depends on.
func (c *Case) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidCase)
	}
	if len(c.Rooms) == 0 {
		return fmt.Errorf("%w: no rooms", ErrInvalidCase)
	}
	seen := make(map[string]bool, len(c.Rooms))
	for _, r := range c.Rooms {
		if r.ID == "" {
			return fmt.Errorf("%w: room without id", ErrInvalidCase)
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: duplicate room %q", ErrInvalidCase, r.ID)
		}
		seen[r.ID] = true
	}
	if !seen[c.StartRoom] {
		return fmt.Errorf("%w: start room %q does not exist", ErrInvalidCase, c.StartRoom)
	}
	for _, r := range c.Rooms {
		for dir, to := range r.Exits {
			if !seen[to] {
				return fmt.Errorf("%w: room %q exit %q leads to unknown room %q", ErrInvalidCase, r.ID, dir, to)
			}
		}
	}
	for _, s := range c.Suspects {
		if s.Room != "" && !seen[s.Room] {
			return fmt.Errorf("%w: suspect %q placed in unknown room %q", ErrInvalidCase, s.ID, s.Room)
		}
	}
	for i, q := range c.Exam {
		if len(q.Slots) == 0 {
			return fmt.Errorf("%w: exam question %d has no slots", ErrInvalidCase, i+1)
		}
		for id, slot := range q.Slots {
			if !slot.hasChoice(slot.Answer) {
				return fmt.Errorf("%w: exam question %d slot %q answer %q is not a choice", ErrInvalidCase, i+1, id, slot.Answer)
			}
		}
	}
	return nil
}

func (s ExamSlot) hasChoice(id string) bool {
	for _, c := range s.Choices {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Score counts slots answered correctly for question i.
func (q ExamQuestion) Score(answers map[string]string) (correct, total int) {
	for id, slot := range q.Slots {
		total++
		if answers[id] == slot.Answer {
			correct++
		}
	}
	return correct, total
}

// CheckAnswers reports the first slot or choice in answers the question does not define.
func (q ExamQuestion) CheckAnswers(answers map[string]string) error {
	if len(answers) != len(q.Slots) {
		return fmt.Errorf("expected %d answers, got %d", len(q.Slots), len(answers))
	}
	for id, choice := range answers {
		slot, ok := q.Slots[id]
		if !ok {
			return fmt.Errorf("unknown slot %q", id)
		}
		if !slot.hasChoice(choice) {
			return fmt.Errorf("slot %q has no choice %q", id, choice)
		}
	}
	return nil
}

package template

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is returned by editing operations given a position
// that does not exist in the tree.
var ErrIndexOutOfRange = errors.New("index out of range")

// Reorder moves the element at from to position to, leaving the relative
// order of every other element unchanged. It returns a new slice; list is
// not modified. Out-of-range positions return an error.
func Reorder[T any](list []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(list) || to < 0 || to >= len(list) {
		return nil, fmt.Errorf("reorder %d -> %d of %d: %w", from, to, len(list), ErrIndexOutOfRange)
	}
	out := make([]T, 0, len(list))
	out = append(out, list[:from]...)
	out = append(out, list[from+1:]...)

	moved := list[from]
	out = append(out, moved)
	copy(out[to+1:], out[to:len(out)-1])
	out[to] = moved
	return out, nil
}

// AddSection appends a default section and returns its index, which the
// editor treats as the active section.
func (t *Template) AddSection() int {
	idx := len(t.Sections)
	t.Sections = append(t.Sections, NewSection(idx))
	t.renumber()
	return idx
}

func (t *Template) RemoveSection(index int) error {
	if err := t.checkSection(index); err != nil {
		return err
	}
	t.Sections = append(t.Sections[:index], t.Sections[index+1:]...)
	t.renumber()
	return nil
}

func (t *Template) MoveSection(from, to int) error {
	out, err := Reorder(t.Sections, from, to)
	if err != nil {
		return fmt.Errorf("move section: %w", err)
	}
	t.Sections = out
	t.renumber()
	return nil
}

// AddQuestion appends the default RADIO question to a section and returns it.
func (t *Template) AddQuestion(sectionIndex int) (*Question, error) {
	if err := t.checkSection(sectionIndex); err != nil {
		return nil, err
	}
	sec := &t.Sections[sectionIndex]
	sec.Questions = append(sec.Questions, NewQuestion(len(sec.Questions)))
	t.renumber()
	return &sec.Questions[len(sec.Questions)-1], nil
}

func (t *Template) RemoveQuestion(sectionIndex, questionIndex int) error {
	if err := t.checkQuestion(sectionIndex, questionIndex); err != nil {
		return err
	}
	sec := &t.Sections[sectionIndex]
	sec.Questions = append(sec.Questions[:questionIndex], sec.Questions[questionIndex+1:]...)
	t.renumber()
	return nil
}

func (t *Template) MoveQuestion(sectionIndex, from, to int) error {
	if err := t.checkSection(sectionIndex); err != nil {
		return err
	}
	sec := &t.Sections[sectionIndex]
	out, err := Reorder(sec.Questions, from, to)
	if err != nil {
		return fmt.Errorf("move question: %w", err)
	}
	sec.Questions = out
	t.renumber()
	return nil
}

// ChangeQuestionType switches a question's type, discarding whatever
// configuration it had and installing the new type's default.
func (t *Template) ChangeQuestionType(sectionIndex, questionIndex int, newType QuestionType) error {
	if !newType.Valid() {
		return invalid("type", "unknown question type %q", newType)
	}
	if err := t.checkQuestion(sectionIndex, questionIndex); err != nil {
		return err
	}
	q := &t.Sections[sectionIndex].Questions[questionIndex]
	q.Type = newType
	q.Config = DefaultConfig(newType)
	return nil
}

func (t *Template) AddOption(sectionIndex, questionIndex int, text string) (*Option, error) {
	q, err := t.optionQuestion(sectionIndex, questionIndex)
	if err != nil {
		return nil, err
	}
	opts := q.Options()
	if text == "" {
		text = fmt.Sprintf("Option %d", len(opts)+1)
	}
	opts = append(opts, NewOption(text, len(opts)))
	q.Config = OptionList(opts)
	return &opts[len(opts)-1], nil
}

func (t *Template) RemoveOption(sectionIndex, questionIndex, optionIndex int) error {
	q, err := t.optionQuestion(sectionIndex, questionIndex)
	if err != nil {
		return err
	}
	opts := q.Options()
	if optionIndex < 0 || optionIndex >= len(opts) {
		return fmt.Errorf("option %d: %w", optionIndex, ErrIndexOutOfRange)
	}
	opts = append(opts[:optionIndex], opts[optionIndex+1:]...)
	q.Config = OptionList(opts)
	t.renumber()
	return nil
}

func (t *Template) MoveOption(sectionIndex, questionIndex, from, to int) error {
	q, err := t.optionQuestion(sectionIndex, questionIndex)
	if err != nil {
		return err
	}
	out, err := Reorder(q.Options(), from, to)
	if err != nil {
		return fmt.Errorf("move option: %w", err)
	}
	q.Config = OptionList(out)
	t.renumber()
	return nil
}

// renumber makes every order field equal to its list position.
func (t *Template) renumber() {
	for i := range t.Sections {
		sec := &t.Sections[i]
		sec.Order = i
		for j := range sec.Questions {
			q := &sec.Questions[j]
			q.Order = j
			if opts, ok := q.Config.(OptionList); ok {
				for k := range opts {
					opts[k].Order = k
				}
			}
		}
	}
}

func (t *Template) checkSection(index int) error {
	if index < 0 || index >= len(t.Sections) {
		return fmt.Errorf("section %d: %w", index, ErrIndexOutOfRange)
	}
	return nil
}

func (t *Template) checkQuestion(sectionIndex, questionIndex int) error {
	if err := t.checkSection(sectionIndex); err != nil {
		return err
	}
	if questionIndex < 0 || questionIndex >= len(t.Sections[sectionIndex].Questions) {
		return fmt.Errorf("question %d of section %d: %w", questionIndex, sectionIndex, ErrIndexOutOfRange)
	}
	return nil
}

func (t *Template) optionQuestion(sectionIndex, questionIndex int) (*Question, error) {
	if err := t.checkQuestion(sectionIndex, questionIndex); err != nil {
		return nil, err
	}
	q := &t.Sections[sectionIndex].Questions[questionIndex]
	if !q.Type.HasOptions() {
		return nil, invalid("type", "question type %s has no options", q.Type)
	}
	return q, nil
}

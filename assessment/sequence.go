package assessment

import (
	"github.com/abimbolaoige/KFM-Counsel-Chat/apperr"
)

// Sequence collects the answers of one sitting. It is append-only until
// Reset and yields its Result exactly once, on the final answer.
type Sequence struct {
	def     *Definition
	answers []int
	result  *Result
}

// NewSequence starts an empty sequence for def.
func NewSequence(def *Definition) *Sequence {
	return &Sequence{def: def, answers: make([]int, 0, len(def.Questions))}
}

func (s *Sequence) Definition() *Definition { return s.def }

// Answers returns a copy of the answers given so far.
func (s *Sequence) Answers() []int {
	out := make([]int, len(s.answers))
	copy(out, s.answers)
	return out
}

// Position is the zero-based index of the next question.
func (s *Sequence) Position() int { return len(s.answers) }

// Complete reports whether every question has been answered.
func (s *Sequence) Complete() bool { return len(s.answers) == len(s.def.Questions) }

// Current returns the next question to answer, if any.
func (s *Sequence) Current() (Question, bool) {
	if s.Complete() {
		return Question{}, false
	}
	return s.def.Questions[len(s.answers)], true
}

// Result returns the computed result once the sequence is complete.
func (s *Sequence) Result() (Result, bool) {
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// Append records the answer to the current question. When it is the last
// answer the result is computed and returned; otherwise the result is nil.
func (s *Sequence) Append(v int) (*Result, error) {
	q, ok := s.Current()
	if !ok {
		return nil, apperr.Validation("assessment already complete; restart to answer again")
	}
	if !q.HasOption(v) {
		return nil, apperr.Validation("answer %d is not an option for question %d", v, q.ID)
	}
	s.answers = append(s.answers, v)
	if !s.Complete() {
		return nil, nil
	}

	res, err := Score(s.def, s.answers)
	if err != nil {
		// Unreachable with validated options; roll back the append.
		s.answers = s.answers[:len(s.answers)-1]
		return nil, err
	}
	s.result = &res
	out := res
	return &out, nil
}

// Reset clears the answers and the result.
func (s *Sequence) Reset() {
	s.answers = s.answers[:0]
	s.result = nil
}

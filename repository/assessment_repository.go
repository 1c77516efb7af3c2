package repository

import (
	"sync"

	"go.uber.org/zap"

	"github.com/abimbolaoige/KFM-Counsel-Chat/assessment"
)

// AssessmentSessionRepository keeps in-progress answer sequences per session
// and assessment type. Sequences are session-scoped and never persisted.
type AssessmentSessionRepository interface {
	// Update runs fn on the sequence for (sessionID, def.Type), creating an
	// empty one first if needed. fn runs under the repository lock.
	Update(sessionID string, def *assessment.Definition, fn func(seq *assessment.Sequence) error) error
	// Peek returns a copy of the answers and the position, if a sequence exists.
	Peek(sessionID string, typ assessment.Type) (answers []int, ok bool)
	Reset(sessionID string, typ assessment.Type)
	// Sessions lists the sessions holding at least one sequence.
	Sessions() []string
	DeleteSession(sessionID string)
}

type sequenceKey struct {
	session string
	typ     assessment.Type
}

// assessmentSessionRepository is the in-memory implementation.
type assessmentSessionRepository struct {
	mu        sync.Mutex
	sequences map[sequenceKey]*assessment.Sequence
	log       *zap.Logger
}

// NewAssessmentSessionRepository creates the in-memory repository.
func NewAssessmentSessionRepository(log *zap.Logger) AssessmentSessionRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &assessmentSessionRepository{
		sequences: make(map[sequenceKey]*assessment.Sequence),
		log:       log.Named("AssessmentSessionRepository"),
	}
}

func (r *assessmentSessionRepository) Update(sessionID string, def *assessment.Definition, fn func(seq *assessment.Sequence) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sequenceKey{sessionID, def.Type}
	seq, ok := r.sequences[key]
	if !ok {
		seq = assessment.NewSequence(def)
		r.sequences[key] = seq
		r.log.Debug("started answer sequence", zap.String("type", string(def.Type)))
	}
	return fn(seq)
}

func (r *assessmentSessionRepository) Peek(sessionID string, typ assessment.Type) ([]int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seq, ok := r.sequences[sequenceKey{sessionID, typ}]
	if !ok {
		return nil, false
	}
	return seq.Answers(), true
}

func (r *assessmentSessionRepository) Reset(sessionID string, typ assessment.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq, ok := r.sequences[sequenceKey{sessionID, typ}]; ok {
		seq.Reset()
	}
}

func (r *assessmentSessionRepository) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var ids []string
	for k := range r.sequences {
		if !seen[k.session] {
			seen[k.session] = true
			ids = append(ids, k.session)
		}
	}
	return ids
}

func (r *assessmentSessionRepository) DeleteSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.sequences {
		if k.session == sessionID {
			delete(r.sequences, k)
		}
	}
}

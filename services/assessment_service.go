package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abimbolaoige/KFM-Counsel-Chat/apperr"
	"github.com/abimbolaoige/KFM-Counsel-Chat/assessment"
	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
	"github.com/abimbolaoige/KFM-Counsel-Chat/repository"
	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
)

const warnHistoryNotSaved = "Your result could not be saved to your history."

// historyWriteTimeout bounds the single history write attempt. The result
// waits on it, so it stays well under a user-noticeable pause.
const historyWriteTimeout = 1500 * time.Millisecond

// AssessmentProgress is the state of one questionnaire for a session.
type AssessmentProgress struct {
	Type     assessment.Type      `json:"type"`
	Title    string               `json:"title"`
	Total    int                  `json:"total"`
	Position int                  `json:"position"`
	Question *assessment.Question `json:"question,omitempty"`
	Result   *assessment.Result   `json:"result,omitempty"`
	Warnings []string             `json:"warnings,omitempty"`
}

// AssessmentService drives the questionnaires.
type AssessmentService interface {
	Definitions() []*assessment.Definition
	Progress(sess *session.Session, typ assessment.Type) (*AssessmentProgress, error)
	// SubmitAnswer appends one answer. The final answer yields the result and
	// records it in the caller's history; a failed history write is reported
	// as a warning, never as an error.
	SubmitAnswer(ctx context.Context, sess *session.Session, typ assessment.Type, value int) (*AssessmentProgress, error)
	Restart(sess *session.Session, typ assessment.Type) (*AssessmentProgress, error)
	// Score evaluates a complete answer list in one call, with the same
	// history side effect as SubmitAnswer.
	Score(ctx context.Context, sess *session.Session, typ assessment.Type, answers []int) (*AssessmentProgress, error)
	ActiveSessions() []string
	ForgetSession(sessionID string)
}

type assessmentService struct {
	catalog  *assessment.Catalog
	repo     repository.AssessmentSessionRepository
	profiles ProfileService
	log      *zap.Logger
	now      func() time.Time

	historyTimeout time.Duration
}

// NewAssessmentService creates a new instance of AssessmentService.
func NewAssessmentService(catalog *assessment.Catalog, repo repository.AssessmentSessionRepository, profiles ProfileService, log *zap.Logger) AssessmentService {
	if catalog == nil {
		catalog = assessment.DefaultCatalog()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &assessmentService{
		catalog:  catalog,
		repo:     repo,
		profiles: profiles,
		log:      log.Named("AssessmentService"),
		now:      time.Now,

		historyTimeout: historyWriteTimeout,
	}
}

func (s *assessmentService) Definitions() []*assessment.Definition {
	return s.catalog.Definitions()
}

func (s *assessmentService) definition(typ assessment.Type) (*assessment.Definition, error) {
	def, ok := s.catalog.Get(typ)
	if !ok {
		return nil, apperr.NotFound("unknown assessment %q", typ)
	}
	return def, nil
}

func progressOf(seq *assessment.Sequence) *AssessmentProgress {
	def := seq.Definition()
	p := &AssessmentProgress{
		Type:     def.Type,
		Title:    def.Title,
		Total:    len(def.Questions),
		Position: seq.Position(),
	}
	if q, ok := seq.Current(); ok {
		p.Question = &q
	}
	if res, ok := seq.Result(); ok {
		p.Result = &res
	}
	return p
}

func (s *assessmentService) Progress(sess *session.Session, typ assessment.Type) (*AssessmentProgress, error) {
	def, err := s.definition(typ)
	if err != nil {
		return nil, err
	}
	var p *AssessmentProgress
	err = s.repo.Update(sess.ID, def, func(seq *assessment.Sequence) error {
		p = progressOf(seq)
		return nil
	})
	return p, err
}

func (s *assessmentService) SubmitAnswer(ctx context.Context, sess *session.Session, typ assessment.Type, value int) (*AssessmentProgress, error) {
	def, err := s.definition(typ)
	if err != nil {
		return nil, err
	}
	var (
		p   *AssessmentProgress
		res *assessment.Result
	)
	err = s.repo.Update(sess.ID, def, func(seq *assessment.Sequence) error {
		r, err := seq.Append(value)
		if err != nil {
			return err
		}
		res = r
		p = progressOf(seq)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res != nil {
		s.log.Info("assessment completed",
			zap.String("type", string(typ)),
			zap.Int("score", res.Score),
			zap.String("summary", res.Summary),
			zap.Bool("hazard", res.Hazard))
		p.Warnings = s.record(ctx, sess, *res)
	}
	return p, nil
}

func (s *assessmentService) Restart(sess *session.Session, typ assessment.Type) (*AssessmentProgress, error) {
	def, err := s.definition(typ)
	if err != nil {
		return nil, err
	}
	var p *AssessmentProgress
	err = s.repo.Update(sess.ID, def, func(seq *assessment.Sequence) error {
		seq.Reset()
		p = progressOf(seq)
		return nil
	})
	return p, err
}

func (s *assessmentService) Score(ctx context.Context, sess *session.Session, typ assessment.Type, answers []int) (*AssessmentProgress, error) {
	def, err := s.definition(typ)
	if err != nil {
		return nil, err
	}
	res, err := assessment.Score(def, answers)
	if err != nil {
		return nil, err
	}
	p := &AssessmentProgress{
		Type:     def.Type,
		Title:    def.Title,
		Total:    len(def.Questions),
		Position: len(def.Questions),
		Result:   &res,
	}
	p.Warnings = s.record(ctx, sess, res)
	return p, nil
}

// record makes a single attempt to append res to the caller's history.
// Only the relationship triage is tracked.
func (s *assessmentService) record(ctx context.Context, sess *session.Session, res assessment.Result) []string {
	if res.Type != assessment.TypeTriage || s.profiles == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.historyTimeout)
	defer cancel()

	rec := models.TriageRecord{
		Type:    string(res.Type),
		Date:    s.now().UTC(),
		Score:   res.Score,
		Summary: res.Summary,
	}
	if err := s.profiles.AppendHistory(ctx, sess, rec); err != nil {
		s.log.Warn("failed to record triage history", zap.String("user_id", sess.UserID), zap.Error(err))
		return []string{warnHistoryNotSaved}
	}
	return nil
}

func (s *assessmentService) ActiveSessions() []string {
	return s.repo.Sessions()
}

func (s *assessmentService) ForgetSession(sessionID string) {
	s.repo.DeleteSession(sessionID)
}

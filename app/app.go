// Package app wires stores, services and the HTTP layer together.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/abimbolaoige/KFM-Counsel-Chat/api"
	"github.com/abimbolaoige/KFM-Counsel-Chat/config"
	"github.com/abimbolaoige/KFM-Counsel-Chat/database"
	"github.com/abimbolaoige/KFM-Counsel-Chat/llm"
	"github.com/abimbolaoige/KFM-Counsel-Chat/mail"
	"github.com/abimbolaoige/KFM-Counsel-Chat/repository"
	"github.com/abimbolaoige/KFM-Counsel-Chat/safety"
	"github.com/abimbolaoige/KFM-Counsel-Chat/services"
	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
)

// Stores are the external dependencies of the services.
type Stores struct {
	DB        *gorm.DB
	Sessions  session.Store
	KV        repository.KVStore
	Generator llm.Generator

	closers []func() error
}

// Close releases every connection opened by OpenStores.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// OpenStores connects the document store, the session and key-value stores
// (Redis when redis.url is set, process memory otherwise) and the language
// generation provider.
func OpenStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Stores, error) {
	st := &Stores{}

	db, err := database.Init(cfg.Database.DSN, log)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		st.closers = append(st.closers, sqlDB.Close)
	}
	if err := database.Migrate(db); err != nil {
		_ = st.Close()
		return nil, err
	}
	st.DB = db

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			_ = st.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		st.closers = append(st.closers, client.Close)
		st.Sessions = session.NewRedisStoreWithClient(client, cfg.Session.TTL)
		st.KV = repository.NewRedisKV(client)
		log.Info("using redis for sessions and local profiles")
	} else {
		st.Sessions = session.NewMemoryStore(cfg.Session.TTL)
		st.KV = repository.NewMemoryKV()
		log.Info("using in-process sessions and local profiles")
	}

	gen, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if _, ok := gen.(llm.Unavailable); ok {
		log.Warn("no language service key configured; replies will use fallbacks", zap.String("api_key_env", cfg.LLM.APIKeyEnv))
	}
	st.Generator = gen
	return st, nil
}

// NewServices builds every service over st. Per-session state held by the
// services is released on logout, or by the returned janitor once the
// session expires.
func NewServices(cfg *config.Config, st *Stores, log *zap.Logger) (api.Services, *services.SessionJanitor) {
	if log == nil {
		log = zap.NewNop()
	}
	users := repository.NewUserRepository(st.DB, log)
	profileRepo := repository.NewProfileRepository(st.DB, log)
	triageRepo := repository.NewTriageRepository(st.DB, log)
	journalRepo := repository.NewJournalRepository(st.DB, log)
	hubRepo := repository.NewHubRepository(st.DB, log)
	chatRepo := repository.NewChatRepository(st.DB, log)
	escalationRepo := repository.NewEscalationRepository(st.DB, log)
	sequences := repository.NewAssessmentSessionRepository(log)

	var svc api.Services
	svc.Auth = services.NewAuthService(users, st.Sessions, resetNotifier(cfg, log), log, func(id string) {
		svc.Assessments.ForgetSession(id)
		svc.Lock.ForgetSession(id)
		svc.Chat.ForgetSession(id)
		svc.Profiles.ForgetGuest(id)
	})
	svc.Profiles = services.NewProfileService(profileRepo, triageRepo, st.KV, cfg.Triage.HistoryLimit, cfg.Session.TTL, log)
	svc.Assessments = services.NewAssessmentService(nil, sequences, svc.Profiles, log)
	svc.Safety = services.NewSafetyService(safety.Default(), cfg.Safety.EmergencyURL, svc.Auth, log)
	svc.Lock = services.NewLockService(svc.Profiles, svc.Auth, cfg.Lock.MaxAttempts, cfg.Lock.Cooldown, log)
	svc.Chat = services.NewChatService(st.Generator, svc.Safety, chatRepo, cfg.LLM.Timeout, log)
	svc.Prayer = services.NewPrayerService(st.Generator, hubRepo, svc.Safety, svc.Auth, cfg.Hub.Limit, cfg.LLM.Timeout, log)
	svc.Journal = services.NewJournalService(journalRepo, svc.Safety, log)
	svc.Escalations = services.NewEscalationService(escalationRepo, svc.Safety, log)
	svc.Devotion = services.NewDevotionService()

	janitor := services.NewSessionJanitor(st.Sessions, log).
		Track(svc.Assessments, svc.Lock, svc.Chat).
		Purge(svc.Lock)
	// Redis expires its own keys; the in-process stores need a sweep.
	for _, s := range []any{st.Sessions, st.KV} {
		if p, ok := s.(services.Purger); ok {
			janitor.Purge(p)
		}
	}
	return svc, janitor
}

func resetNotifier(cfg *config.Config, log *zap.Logger) services.ResetNotifier {
	sender := mail.NewSender(cfg.Mail)
	if !sender.Configured() {
		return services.NewLogResetNotifier(cfg.Mail.ResetURL, log)
	}
	log.Info("password reset links will be mailed", zap.String("smtp_host", cfg.Mail.Host))
	return services.NewMailResetNotifier(sender, cfg.Mail.ResetURL)
}

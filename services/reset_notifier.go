package services

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
)

// ResetNotifier delivers a password reset token to the account holder.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, user *models.User, token string) error
}

// ResetMailer is the part of mail.Sender used for reset links.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, name, link string) error
}

// ResetLink appends the escaped token to base.
func ResetLink(base, token string) string {
	return base + url.QueryEscape(token)
}

type logResetNotifier struct {
	baseURL string
	log     *zap.Logger
}

// NewLogResetNotifier writes reset links to the log. It is used when no
// mail relay is configured, so an operator can pass the link on by hand.
func NewLogResetNotifier(baseURL string, log *zap.Logger) ResetNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &logResetNotifier{baseURL: baseURL, log: log.Named("ResetNotifier")}
}

func (n *logResetNotifier) NotifyPasswordReset(_ context.Context, user *models.User, token string) error {
	n.log.Warn("no mail relay configured; reset link logged for manual delivery",
		zap.String("user_id", user.ID),
		zap.String("link", ResetLink(n.baseURL, token)))
	return nil
}

type mailResetNotifier struct {
	mailer  ResetMailer
	baseURL string
}

// NewMailResetNotifier mails reset links through mailer.
func NewMailResetNotifier(mailer ResetMailer, baseURL string) ResetNotifier {
	return &mailResetNotifier{mailer: mailer, baseURL: baseURL}
}

func (n *mailResetNotifier) NotifyPasswordReset(ctx context.Context, user *models.User, token string) error {
	return n.mailer.SendPasswordReset(ctx, user.Email, user.Name, ResetLink(n.baseURL, token))
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"erinnerungslicht-backend/internal/domain"
	"erinnerungslicht-backend/pkg/email"
	"erinnerungslicht-backend/pkg/i18n"
	"erinnerungslicht-backend/pkg/metrics"
	"erinnerungslicht-backend/pkg/security"
	"erinnerungslicht-backend/pkg/spam"
	"erinnerungslicht-backend/pkg/validation"

	"github.com/google/uuid"
)

type contactUsecase struct {
	filter           *spam.Filter
	composer         *email.Composer
	mailer           domain.MailDispatcher
	sendConfirmation bool
	metrics          *metrics.Metrics
	security         *security.SecurityLogger
	log              *slog.Logger
}

// ContactDeps groups the collaborators of the contact usecase. Metrics and
// Security may be nil.
type ContactDeps struct {
	Filter           *spam.Filter
	Composer         *email.Composer
	Mailer           domain.MailDispatcher
	SendConfirmation bool
	Metrics          *metrics.Metrics
	Security         *security.SecurityLogger
	Logger           *slog.Logger
}

// NewContactUsecase creates a new contact usecase
func NewContactUsecase(deps ContactDeps) domain.ContactUsecase {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &contactUsecase{
		filter:           deps.Filter,
		composer:         deps.Composer,
		mailer:           deps.Mailer,
		sendConfirmation: deps.SendConfirmation,
		metrics:          deps.Metrics,
		security:         deps.Security,
		log:              log,
	}
}

// Submit validates the submission, runs the spam heuristics and sends the
// operator notification. The confirmation, when enabled, is only queued.
// Log lines never carry the message text.
func (uc *contactUsecase) Submit(ctx context.Context, sub *domain.Submission) (*domain.ContactResult, error) {
	lang, ok := i18n.Parse(sub.Language)
	if !ok {
		lang = i18n.German
	}

	violations := validation.Validate(validation.Fields{
		Name:    sub.Name,
		Email:   sub.Email,
		Message: sub.Message,
		Privacy: sub.PrivacyAccepted,
	}, lang)
	if len(violations) > 0 {
		uc.metrics.Submission(metrics.OutcomeInvalid)
		uc.security.LogValidationFailed(ctx, sub.ClientIP, sub.RequestID, len(violations))
		uc.log.Info("Contact submission rejected",
			"outcome", metrics.OutcomeInvalid,
			"ip", sub.ClientIP,
			"request_id", sub.RequestID,
			"violations", len(violations),
		)
		return nil, &domain.ValidationError{Messages: violations}
	}

	candidate := spam.Candidate{
		Name:     sub.Name,
		Message:  sub.Message,
		Honeypot: sub.HoneypotValue,
	}
	if renderedAt, ok := sub.SubmittedAt.Time(); ok {
		candidate.RenderedAt = renderedAt
	}
	if verdict := uc.filter.Check(candidate); !verdict.Accepted {
		uc.metrics.Submission(metrics.OutcomeSpam)
		uc.metrics.Spam(string(verdict.Reason))
		uc.security.LogSpamDetected(ctx, sub.ClientIP, sub.RequestID, string(verdict.Reason), verdict.Detail)
		uc.log.Warn("Contact submission rejected",
			"outcome", metrics.OutcomeSpam,
			"ip", sub.ClientIP,
			"request_id", sub.RequestID,
			"reason", verdict.Reason,
		)
		return nil, &domain.SpamError{Reason: string(verdict.Reason), Detail: verdict.Detail}
	}

	notification, err := uc.composer.Notification(sub)
	if err != nil {
		return nil, fmt.Errorf("compose notification: %w", err)
	}
	if err := uc.mailer.Send(ctx, domain.MailNotification, notification); err != nil {
		uc.metrics.Submission(metrics.OutcomeDeliveryError)
		uc.log.Error("Contact submission failed",
			"outcome", metrics.OutcomeDeliveryError,
			"ip", sub.ClientIP,
			"request_id", sub.RequestID,
		)
		return nil, err
	}

	result := &domain.ContactResult{ReferenceID: sub.RequestID}
	if result.ReferenceID == "" {
		result.ReferenceID = uuid.NewString()
	}

	if uc.sendConfirmation {
		confirmation, err := uc.composer.Confirmation(sub)
		if err != nil {
			uc.log.Error("Failed to compose confirmation", "request_id", sub.RequestID, "error", err)
		} else {
			uc.mailer.Enqueue(ctx, domain.MailConfirmation, confirmation)
			result.ConfirmationQueued = true
		}
	}

	uc.metrics.Submission(metrics.OutcomeAccepted)
	uc.log.Info("Contact submission accepted",
		"outcome", metrics.OutcomeAccepted,
		"ip", sub.ClientIP,
		"request_id", sub.RequestID,
		"confirmation", result.ConfirmationQueued,
	)
	return result, nil
}

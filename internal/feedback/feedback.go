// Package feedback accepts public feedback and grievance submissions.
package feedback

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"lifelink/internal/domain"
	"lifelink/internal/infra"
)

const maxMessageLength = 5000

// Input is the body of a feedback request.
type Input struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type Service struct {
	store  domain.FeedbackStore
	logger infra.Logger
	now    func() time.Time
}

func NewService(store domain.FeedbackStore, logger infra.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// Submit validates and stores in, tagging it with the caller's locale and
// country when known.
func (s *Service) Submit(ctx context.Context, in Input, locale, country string) (*domain.Feedback, error) {
	fb := &domain.Feedback{
		Name:    strings.TrimSpace(in.Name),
		Subject: strings.TrimSpace(in.Subject),
		Message: strings.TrimSpace(in.Message),
		Type:    domain.FeedbackType(strings.ToLower(strings.TrimSpace(in.Type))),
		Locale:  locale,
		Country: country,
	}
	var missing []string
	if fb.Name == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(in.Email) == "" {
		missing = append(missing, "email")
	}
	if fb.Message == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email address", domain.ErrValidation)
	}
	fb.Email = addr.Address
	if len(fb.Message) > maxMessageLength {
		return nil, fmt.Errorf("%w: message longer than %d characters", domain.ErrValidation, maxMessageLength)
	}
	switch fb.Type {
	case "":
		fb.Type = domain.FeedbackGeneral
	case domain.FeedbackGeneral, domain.FeedbackGrievance, domain.FeedbackSuggestion:
	default:
		return nil, fmt.Errorf("%w: unknown feedback type %q", domain.ErrValidation, fb.Type)
	}

	fb.ID = uuid.NewString()
	fb.CreatedAt = s.now().UTC()
	if err := s.store.Create(ctx, fb); err != nil {
		return nil, fmt.Errorf("store feedback: %w", err)
	}
	s.logger.Info().Str("id", fb.ID).Str("type", string(fb.Type)).Str("country", country).Msg("feedback received")
	return fb, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Feedback, error) {
	return s.store.List(ctx)
}

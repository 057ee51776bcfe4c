package code

import (
	"context"
	"log/slog"
	"time"

	dErrors "presence/pkg/domain-errors"

	"presence/internal/audit"
)

// Issuer mints display codes and tracks the active issuance per display
// session, so a scanned code can be checked against what was actually
// put on screen.
type Issuer struct {
	codes    *Service
	registry Registry
	audit    *audit.Publisher
	log      *slog.Logger
}

func NewIssuer(codes *Service, registry Registry, auditor *audit.Publisher, log *slog.Logger) *Issuer {
	return &Issuer{codes: codes, registry: registry, audit: auditor, log: log}
}

// IssueAndRegister mints a code and records it as the live issuance for
// the display session, superseding any previous one.
func (i *Issuer) IssueAndRegister(ctx context.Context, sessionID, lectureID, roomID string, lifetime time.Duration) (IssuedCode, error) {
	if sessionID == "" || lectureID == "" || roomID == "" {
		return IssuedCode{}, dErrors.New(dErrors.CodeInvalidInput, "session id, lecture id and room id are required")
	}

	issued, err := i.codes.Issue(sessionID, lectureID, roomID, lifetime)
	if err != nil {
		return IssuedCode{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not issue code")
	}
	if err := i.registry.Register(ctx, issued); err != nil {
		return IssuedCode{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not register issued code")
	}

	i.audit.Emit(ctx, audit.Event{
		Actor:   sessionID,
		Action:  audit.ActionCodeIssued,
		Subject: lectureID,
	})
	i.log.InfoContext(ctx, "display code issued",
		slog.String("session_id", sessionID),
		slog.String("lecture_id", lectureID),
		slog.Time("expires_at", issued.ExpiresAt),
	)
	return issued, nil
}

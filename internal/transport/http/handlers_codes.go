package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"presence/pkg/platform/httputil"

	"presence/internal/code"
)

// CodeIssuer defines the interface for minting display codes.
type CodeIssuer interface {
	IssueAndRegister(ctx context.Context, sessionID, lectureID, roomID string, lifetime time.Duration) (code.IssuedCode, error)
}

// CodeHandler wires the instructor-facing code endpoint to the issuer.
type CodeHandler struct {
	issuer CodeIssuer
	logger *slog.Logger
}

func NewCodeHandler(issuer CodeIssuer, logger *slog.Logger) *CodeHandler {
	return &CodeHandler{issuer: issuer, logger: logger}
}

// Register mounts code endpoints on the router.
func (h *CodeHandler) Register(r chi.Router) {
	r.Post("/codes", h.handleIssue)
}

type issueCodeRequest struct {
	SessionID       string `json:"session_id"`
	LectureID       string `json:"lecture_id"`
	RoomID          string `json:"room_id"`
	LifetimeSeconds int    `json:"lifetime_seconds,omitempty"`
}

type issueCodeResponse struct {
	Code      string    `json:"code"`
	SessionID string    `json:"session_id"`
	LectureID string    `json:"lecture_id"`
	RoomID    string    `json:"room_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *CodeHandler) handleIssue(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[issueCodeRequest](w, r, h.logger)
	if !ok {
		return
	}

	lifetime := time.Duration(req.LifetimeSeconds) * time.Second
	issued, err := h.issuer.IssueAndRegister(r.Context(), req.SessionID, req.LectureID, req.RoomID, lifetime)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, issueCodeResponse{
		Code:      issued.Code,
		SessionID: issued.SessionID,
		LectureID: issued.LectureID,
		RoomID:    issued.RoomID,
		ExpiresAt: issued.ExpiresAt,
	})
}

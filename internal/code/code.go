package code

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultLifetime bounds how long a scannable code stays valid when the
// caller does not choose one. Codes are meant to be scanned within seconds.
const DefaultLifetime = 60 * time.Second

var (
	// ErrExpired fails validation of a code past its expiry. Always a hard
	// step failure upstream.
	ErrExpired = errors.New("code has expired")
	// ErrTampered fails validation when the signature does not match the
	// payload.
	ErrTampered = errors.New("code signature mismatch")
	// ErrMalformed fails validation of anything that is not a well-formed
	// signed descriptor.
	ErrMalformed = errors.New("code is malformed")
)

// Descriptor is the verified payload carried by a scannable code.
type Descriptor struct {
	SessionID string `json:"session_id"`
	LectureID string `json:"lecture_id"`
	RoomID    string `json:"room_id"`
	ExpiresAt time.Time
}

// IssuedCode is a freshly signed code together with its validity window.
type IssuedCode struct {
	Code      string    `json:"code"`
	SessionID string    `json:"session_id"`
	LectureID string    `json:"lecture_id"`
	RoomID    string    `json:"room_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type codeClaims struct {
	SessionID string `json:"session_id"`
	LectureID string `json:"lecture_id"`
	RoomID    string `json:"room_id"`
	jwt.RegisteredClaims
}

// Service signs and validates session descriptors. Validation recomputes the
// signature from the shared key; no database round-trip is involved.
type Service struct {
	signingKey []byte
	issuer     string
	clock      func() time.Time
}

type Option func(*Service)

// WithClock fixes the time source, used by tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func NewService(signingKey []byte, issuer string, opts ...Option) *Service {
	s := &Service{
		signingKey: signingKey,
		issuer:     issuer,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a descriptor for one verification session with the chosen
// lifetime.
func (s *Service) Issue(sessionID, lectureID, roomID string, lifetime time.Duration) (IssuedCode, error) {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	now := s.clock()
	expiresAt := now.Add(lifetime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, codeClaims{
		SessionID: sessionID,
		LectureID: lectureID,
		RoomID:    roomID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return IssuedCode{}, err
	}
	return IssuedCode{
		Code:      signed,
		SessionID: sessionID,
		LectureID: lectureID,
		RoomID:    roomID,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate checks the signature and expiry and returns the descriptor.
// Failures map onto exactly one of ErrExpired, ErrTampered or ErrMalformed.
func (s *Service) Validate(codeString string) (*Descriptor, error) {
	var claims codeClaims
	parsed, err := jwt.ParseWithClaims(codeString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.clock), jwt.WithExpirationRequired())

	switch {
	case err == nil && parsed.Valid:
		// fall through to field checks
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrTampered
	default:
		return nil, ErrMalformed
	}

	if claims.SessionID == "" || claims.LectureID == "" || claims.RoomID == "" {
		return nil, ErrMalformed
	}
	return &Descriptor{
		SessionID: claims.SessionID,
		LectureID: claims.LectureID,
		RoomID:    claims.RoomID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

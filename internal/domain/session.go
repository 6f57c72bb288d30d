package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session rows are append-only: one row per successful signin, never updated,
// removed only by the expired-session sweep.
const sessionTTL = 6 * time.Hour

const minVerifierLength = 10

var ErrSessionValidation = errors.New("session validation failed")

type Session struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PrincipalID          uuid.UUID `gorm:"type:uuid;index;not null" json:"principal_id"`
	RefreshTokenVerifier string    `gorm:"size:128;not null" json:"-"`
	ExpiresAt            time.Time `gorm:"index;not null" json:"expires_at"`
	ClientIP             string    `gorm:"size:64" json:"client_ip"`
	UserAgent            string    `gorm:"size:512" json:"user_agent"`
	DeviceInfo           string    `gorm:"size:255" json:"device_info"`
	CreatedAt            time.Time `gorm:"not null" json:"created_at"`
}

func (Session) TableName() string { return "user_sessions" }

func NewSession(principalID uuid.UUID, refreshTokenVerifier, clientIP, userAgent, deviceInfo string) (*Session, error) {
	if principalID == uuid.Nil {
		return nil, fmt.Errorf("%w: principal id is required", ErrSessionValidation)
	}
	if len(refreshTokenVerifier) < minVerifierLength {
		return nil, fmt.Errorf("%w: refresh token verifier below minimum length", ErrSessionValidation)
	}
	now := time.Now()
	return &Session{
		ID:                   uuid.New(),
		PrincipalID:          principalID,
		RefreshTokenVerifier: refreshTokenVerifier,
		ExpiresAt:            now.Add(sessionTTL),
		ClientIP:             clientIP,
		UserAgent:            userAgent,
		DeviceInfo:           deviceInfo,
		CreatedAt:            now,
	}, nil
}

func (s *Session) Expired(at time.Time) bool { return s.ExpiresAt.Before(at) }

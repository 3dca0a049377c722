package services

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"registration-system/config"
	"registration-system/internal/status"
)

// CheckinTokenService issues and checks the short-lived, event-bound
// tokens shown on the event display (usually as a QR code). The token
// is a plain reversible encoding with no signature: anyone who observes
// a valid token can replay it until it expires. Accepted weakness, see
// DESIGN.md.
type CheckinTokenService struct {
	ttl time.Duration
}

func NewCheckinTokenService(cfg *config.Config) *CheckinTokenService {
	return &CheckinTokenService{ttl: cfg.CheckinTokenTTL}
}

// Issue returns base64("<eventID>:<unixMillis>").
func (s *CheckinTokenService) Issue(eventID string) string {
	payload := fmt.Sprintf("%s:%d", eventID, time.Now().UnixMilli())
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

// TTL is the validity window of issued tokens.
func (s *CheckinTokenService) TTL() time.Duration {
	return s.ttl
}

func (s *CheckinTokenService) Validate(eventID, token string) error {
	return s.validateAt(eventID, token, time.Now())
}

func (s *CheckinTokenService) validateAt(eventID, token string, now time.Time) error {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return status.ErrMalformedToken
	}

	tokenEvent, millisPart, ok := strings.Cut(string(raw), ":")
	if !ok {
		return status.ErrMalformedToken
	}

	issuedAt, err := strconv.ParseInt(millisPart, 10, 64)
	if err != nil {
		return status.ErrMalformedToken
	}

	if tokenEvent != eventID {
		return status.ErrTokenEventMismatch
	}

	// Strict inequality: a token aged exactly TTL is still valid.
	if now.UnixMilli()-issuedAt > s.ttl.Milliseconds() {
		return status.ErrTokenExpired
	}

	return nil
}

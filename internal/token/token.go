// Package token issues and verifies the signed links the system hands out:
// honeypot traps, unsubscribe/whitelist toggles and short-lived admin access.
package token

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	internal_errors "github.com/folio-dev/folio/internal/errors"
)

// ErrExpired distinguishes an expired token from an otherwise invalid one.
// The admin dashboard self-heals on expiry instead of rejecting outright.
var ErrExpired = errors.New("token expired")

type Service struct {
	jwtSecret   string // unsubscribe + whitelist links
	adminSecret string // dashboard tokens
	trapSecret  string // honeypot tokens

	adminTTL  time.Duration
	trapTTL   time.Duration
	returnTTL time.Duration
}

func New(jwtSecret, adminSecret, trapSecret string, adminTTL, trapTTL, returnTTL time.Duration) *Service {
	return &Service{
		jwtSecret:   jwtSecret,
		adminSecret: adminSecret,
		trapSecret:  trapSecret,
		adminTTL:    adminTTL,
		trapTTL:     trapTTL,
		returnTTL:   returnTTL,
	}
}

// IssueTrap creates a short-lived honeypot token embedding the email to ban
// when the trap is sprung.
func (s *Service) IssueTrap(email string) (string, error) {
	return s.sign(s.trapSecret, jwt.MapClaims{
		"email":  email,
		"action": "blacklist",
		"exp":    time.Now().Add(s.trapTTL).Unix(),
	})
}

// VerifyTrap validates a honeypot token and returns the embedded email.
// Any verification failure fails closed: no email, no ban.
func (s *Service) VerifyTrap(tokenStr string) (string, error) {
	claims, err := s.parse(s.trapSecret, tokenStr, false)
	if err != nil {
		return "", err
	}
	if action, _ := claims["action"].(string); action != "blacklist" {
		return "", invalidToken()
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return "", invalidToken()
	}
	return email, nil
}

// IssueUnsubscribe creates the long-lived token embedded in every outbound
// email's unsubscribe link. It deliberately never expires: the recipient must
// always be able to stop email.
func (s *Service) IssueUnsubscribe(email string) (string, error) {
	return s.sign(s.jwtSecret, jwt.MapClaims{"email": email})
}

func (s *Service) VerifyUnsubscribe(tokenStr string) (string, error) {
	claims, err := s.parse(s.jwtSecret, tokenStr, false)
	if err != nil {
		return "", err
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return "", invalidToken()
	}
	return email, nil
}

// IssueWhitelist creates the return token sent to an unsubscribed user so
// they can restore themselves later.
func (s *Service) IssueWhitelist(email string) (string, error) {
	return s.sign(s.jwtSecret, jwt.MapClaims{
		"email": email,
		"scope": "whitelist",
		"exp":   time.Now().Add(s.returnTTL).Unix(),
	})
}

func (s *Service) VerifyWhitelist(tokenStr string) (string, error) {
	claims, err := s.parse(s.jwtSecret, tokenStr, false)
	if err != nil {
		return "", err
	}
	if scope, _ := claims["scope"].(string); scope != "whitelist" {
		return "", invalidToken()
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return "", invalidToken()
	}
	return email, nil
}

// IssueAdmin creates a short-lived dashboard token.
func (s *Service) IssueAdmin() (string, error) {
	return s.sign(s.adminSecret, jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(s.adminTTL).Unix(),
	})
}

// VerifyAdmin returns ErrExpired for an expired token so the caller can mint
// a fresh one, and a generic 401 for anything else.
func (s *Service) VerifyAdmin(tokenStr string) error {
	claims, err := s.parse(s.adminSecret, tokenStr, true)
	if err != nil {
		return err
	}
	if role, _ := claims["role"].(string); role != "admin" {
		return invalidToken()
	}
	return nil
}

func (s *Service) sign(secret string, claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// parse verifies the signature and returns the claims. Only callers that
// opt in via distinguishExpired see ErrExpired (the admin self-heal flow);
// the public link families report expiry as the same generic invalid-link
// error as any other failure.
func (s *Service) parse(secret, tokenStr string, distinguishExpired bool) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		// Verify signing algorithm
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if distinguishExpired && errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, invalidToken()
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, invalidToken()
	}
	return claims, nil
}

func invalidToken() error {
	return &internal_errors.ErrorWithStatusCode{Message: "Invalid or expired link", StatusCode: http.StatusBadRequest}
}

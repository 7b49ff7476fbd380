package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"zenpulse/internal/api"
	"zenpulse/internal/database"
)

type AuthAPI interface {
	Login(ctx context.Context, email, password string) (api.LoginResult, error)
	Register(ctx context.Context, input api.RegisterInput) error
	Me(ctx context.Context) (database.User, error)
	SetToken(token string)
	Token() string
}

// AuthService signs the client in against the backend. The token lives in
// memory only.
type AuthService struct {
	api AuthAPI
	log *zap.Logger
}

func NewAuthService(client AuthAPI, log *zap.Logger) *AuthService {
	return &AuthService{api: client, log: log.Named("auth")}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (database.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return database.User{}, &api.ValidationError{Message: "email and password are required"}
	}

	res, err := s.api.Login(ctx, email, password)
	if err != nil {
		return database.User{}, fmt.Errorf("login: %w", err)
	}
	s.api.SetToken(res.Token)
	s.log.Info("signed in", zap.String("user", res.User.Email))
	return res.User, nil
}

// Register checks the form before any request is sent.
func (s *AuthService) Register(ctx context.Context, name, email, password, confirm string) error {
	if strings.TrimSpace(name) == "" {
		return &api.ValidationError{Field: "name", Message: "is required"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return &api.ValidationError{Field: "email", Message: "is not a valid address"}
	}
	if password == "" {
		return &api.ValidationError{Field: "password", Message: "is required"}
	}
	if password != confirm {
		return &api.ValidationError{Field: "confirmPassword", Message: "passwords do not match"}
	}

	if err := s.api.Register(ctx, api.RegisterInput{Name: name, Email: email, Password: password}); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Me validates the held token; on failure the token is dropped.
func (s *AuthService) Me(ctx context.Context) (database.User, error) {
	user, err := s.api.Me(ctx)
	if err != nil {
		if !api.IsNetworkError(err) {
			s.api.SetToken("")
		}
		return database.User{}, err
	}
	return user, nil
}

func (s *AuthService) Logout() {
	s.api.SetToken("")
}

func (s *AuthService) Token() string {
	return s.api.Token()
}

func (s *AuthService) SignedIn() bool {
	return s.api.Token() != ""
}

// TokenExpiry reads the exp claim of the held token without verifying it.
// ok is false when there is no token or no exp claim.
func (s *AuthService) TokenExpiry() (time.Time, bool) {
	token := s.api.Token()
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		s.log.Debug("token is not a JWT", zap.Error(err))
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

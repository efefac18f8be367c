package service

import (
	"context"
	"errors"
	"time"

	"mentorcrm_backend/internal/auth/password"
	"mentorcrm_backend/internal/auth/repository"
	"mentorcrm_backend/platform/config"
	"mentorcrm_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrAccountDisabled = errors.New("account disabled")

const accessTokenType = "access"

type Service struct {
	repo *repository.Repository
	cfg  config.AuthServiceConfig
	log  *logger.Logger
}

func New(repo *repository.Repository, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: log}
}

func (s *Service) SignIn(ctx context.Context, email, plainPassword string) (string, repository.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		s.log.AuthEvent("sign_in", email, false, "unknown email")
		return "", repository.User{}, ErrInvalidCredentials
	}

	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("sign_in", email, false, "wrong password")
		return "", repository.User{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.log.AuthEvent("sign_in", email, false, "account disabled")
		return "", repository.User{}, ErrAccountDisabled
	}

	token, err := s.signJWT(user.ID, user.OrganizationID, []string{user.Role})
	if err != nil {
		return "", repository.User{}, err
	}

	s.log.AuthEvent("sign_in", email, true, "")
	return token, user, nil
}

func (s *Service) GetMe(ctx context.Context, userID uuid.UUID) (repository.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

func (s *Service) signJWT(userID, orgID uuid.UUID, roles []string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       userID.String(),
		"type":      accessTokenType,
		"roles":     roles,
		"tenant_id": orgID.String(),
		"exp":       now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":       now.Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}

package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/photoblog/models"
	"github.com/cppla/photoblog/utils"
)

// UserService looks up and authenticates accounts.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a UserService.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Get returns the user with the given id.
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &user, nil
}

// Authenticate checks a username and password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user %q: %w", username, err)
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// EnsureDefaultAuthor creates the fallback author used for anonymous uploads
// when no user with that id exists. With an empty password a random one is
// generated and logged once.
func (s *UserService) EnsureDefaultAuthor(ctx context.Context, id uint, username, password string) (*models.User, bool, error) {
	existing, err := s.Get(ctx, id)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	generated := false
	if password == "" {
		password, err = randomPassword()
		if err != nil {
			return nil, false, err
		}
		generated = true
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash bootstrap password: %w", err)
	}
	user := &models.User{ID: id, Username: username, PasswordHash: hash, IsStaff: true}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, false, fmt.Errorf("create default author: %w", err)
	}
	if generated {
		utils.Logger.Warn("created default author with generated password",
			zap.Uint("id", id), zap.String("username", username), zap.String("password", password))
	} else {
		utils.Logger.Info("created default author", zap.Uint("id", id), zap.String("username", username))
	}
	return user, true, nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

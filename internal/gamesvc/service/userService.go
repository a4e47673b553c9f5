package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/avvvet/gatortots-services/internal/gamesvc/models"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 6
	// bcrypt ignores anything past 72 bytes
	maxPasswordLen = 72
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,50}$`)

type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// UserService registers players.
type UserService struct {
	userStore UserStore
	cost      int
}

func NewUserService(userStore UserStore) *UserService {
	return &UserService{
		userStore: userStore,
		cost:      bcrypt.DefaultCost,
	}
}

// Register creates a user with a bcrypt hash of the password.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return nil, invalid("username must be 3 to 50 letters, digits, '_', '.' or '-'")
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return nil, invalid("password must be %d to %d bytes", minPasswordLen, maxPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	user, err := s.userStore.CreateUser(ctx, username, string(hash))
	if err != nil {
		return nil, err
	}
	log.Infof("user %d registered as %s", user.UserId, user.Username)
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.userStore.GetByID(ctx, id)
}

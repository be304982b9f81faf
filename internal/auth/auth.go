package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/krishanu7/subway-trader-backend/db"
	"github.com/krishanu7/subway-trader-backend/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 6
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLen = 72
)

// ValidationError describes a rejected registration or login field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// Players is the part of the persistence gateway auth needs.
type Players interface {
	GetPlayer(ctx context.Context, username string) (db.Player, error)
	CreatePlayer(ctx context.Context, username, passwordHash string) (db.Player, error)
}

// Session is returned by a successful register or login.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	HighScore int64     `json:"highScore"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	players    Players
	tokens     *Tokens
	bcryptCost int
	log        *zap.Logger
}

func NewService(players Players, tokens *Tokens, bcryptCost int, log *zap.Logger) *Service {
	return &Service{
		players:    players,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		log:        log.Named("auth"),
	}
}

func (s *Service) Register(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if err := validate(username, password); err != nil {
		return Session{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	player, err := s.players.CreatePlayer(ctx, username, string(hashed))
	if err != nil {
		return Session{}, err
	}
	s.log.Info("player registered", zap.String("username", username), zap.String("id", player.ID.String()))
	return s.session(player)
}

func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, &ValidationError{Field: "username and password", Message: "are required"}
	}

	player, err := s.players.GetPlayer(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(player.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(player)
}

// Verify resolves a bearer token to a username.
func (s *Service) Verify(token string) (string, error) {
	return s.tokens.Verify(token)
}

// Profile returns the stored player for an authenticated username.
func (s *Service) Profile(ctx context.Context, username string) (db.Player, error) {
	return s.players.GetPlayer(ctx, username)
}

func (s *Service) session(p db.Player) (Session, error) {
	token, exp, err := s.tokens.Issue(p.Username)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, Username: p.Username, HighScore: p.HighScore, ExpiresAt: exp}, nil
}

func validate(username, password string) error {
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return &ValidationError{Field: "username", Message: fmt.Sprintf("must be %d-%d characters", minUsernameLen, maxUsernameLen)}
	}
	if len(password) < minPasswordLen {
		return &ValidationError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLen)}
	}
	if len(password) > maxPasswordLen {
		return &ValidationError{Field: "password", Message: fmt.Sprintf("must be at most %d bytes", maxPasswordLen)}
	}
	return nil
}

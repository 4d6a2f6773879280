package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inventory-service/internal/ledger"
	"inventory-service/internal/models"
	"inventory-service/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials usuario o contraseña incorrectos
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken token ausente, mal firmado o vencido
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims claims del JWT de sesión
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService define la interfaz de autenticación
type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	ParseToken(token string) (*Claims, error)
	ChangePassword(ctx context.Context, username string, req *models.ChangePasswordRequest) error
	EnsureUser(ctx context.Context, username, password string) error
}

// authService implementa AuthService con bcrypt y JWT HS256
type authService struct {
	users    repository.UserRepository
	secret   []byte
	expiry   time.Duration
	now      func() time.Time
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAuthService crea una nueva instancia del servicio
func NewAuthService(users repository.UserRepository, secret string, expiry time.Duration, logger *zap.Logger) AuthService {
	return &authService{
		users:    users,
		secret:   []byte(secret),
		expiry:   expiry,
		now:      time.Now,
		validate: newValidator(),
		logger:   logger,
	}
}

// Login verifica credenciales y emite un token
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	logger := s.logger.With(
		zap.String("operation", "login"),
		zap.String("username", req.Username),
	)

	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	if err := s.verify(ctx, req.Username, req.Password); err != nil {
		logger.Warn("Login rechazado", zap.Error(err))
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(s.expiry)
	claims := &Claims{
		Username: req.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.Username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	logger.Info("Login exitoso")
	return &models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		Username:  req.Username,
	}, nil
}

// ParseToken valida firma y vencimiento del token
func (s *authService) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Username == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ChangePassword cambia la contraseña verificando la actual
func (s *authService) ChangePassword(ctx context.Context, username string, req *models.ChangePasswordRequest) error {
	logger := s.logger.With(
		zap.String("operation", "change_password"),
		zap.String("username", username),
	)

	if err := s.validate.Struct(req); err != nil {
		return validationError(err)
	}

	if err := s.verify(ctx, username, req.CurrentPassword); err != nil {
		logger.Warn("Contraseña actual incorrecta")
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, username, string(hash)); err != nil {
		return ledger.WrapStore("change_password", err)
	}

	logger.Info("Contraseña actualizada")
	return nil
}

// EnsureUser crea el usuario si no existe. Se usa para el admin inicial.
func (s *authService) EnsureUser(ctx context.Context, username, password string) error {
	existing, err := s.users.GetUser(ctx, username)
	if err != nil {
		return ledger.WrapStore("ensure_user", err)
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.CreateUser(ctx, &models.User{Username: username, PasswordHash: string(hash)}); err != nil {
		return ledger.WrapStore("ensure_user", err)
	}

	s.logger.Info("Usuario inicial creado", zap.String("username", username))
	return nil
}

func (s *authService) verify(ctx context.Context, username, password string) error {
	user, err := s.users.GetUser(ctx, username)
	if err != nil {
		return ledger.WrapStore("get_user", err)
	}
	if user == nil {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

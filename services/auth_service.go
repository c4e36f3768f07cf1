package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"challenge-tracking-system/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessTokenTTL  = 30 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
	resetTokenTTL   = time.Hour
)

// AuthService handles registration, login with DB-backed throttling, token
// issuance and password reset.
type AuthService struct {
	DB        *gorm.DB
	jwtSecret []byte
}

func NewAuthService(db *gorm.DB) *AuthService {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		serviceLog.Warn("[Auth] JWT_SECRET not set, using insecure default")
		secret = "dev-secret-change-me"
	}
	return &AuthService{DB: db, jwtSecret: []byte(secret)}
}

type RegisterPayload struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type authClaims struct {
	UserID    uint   `json:"user_id"`
	Role      int    `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func (s *AuthService) Register(payload *RegisterPayload) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, validationErrorf("a valid email is required")
	}
	if len(payload.Password) < 8 {
		return nil, validationErrorf("password must be at least 8 characters")
	}
	if strings.TrimSpace(payload.DisplayName) == "" {
		return nil, validationErrorf("display_name is required")
	}

	var count int64
	if err := s.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &ConflictError{Message: "email is already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &models.User{
		Email:        email,
		DisplayName:  strings.TrimSpace(payload.DisplayName),
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if err := s.DB.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ConflictError{Message: "email is already registered"}
		}
		return nil, err
	}

	serviceLog.WithField("user_id", user.ID).Info("[Auth] user registered")
	return user, nil
}

// Login verifies credentials under the (email, ip) throttle. Five failures
// inside a ten minute window lock the pair for fifteen minutes; a
// successful login clears the counter.
func (s *AuthService) Login(email, password, ip string) (*models.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	now := time.Now()

	throttle, err := s.loadThrottle(email, ip)
	if err != nil {
		return nil, nil, err
	}
	if throttle.IsLocked(now) {
		return nil, nil, &UnauthorizedError{Message: "too many failed attempts, try again later"}
	}

	var user models.User
	err = s.DB.Where("email = ? AND is_active = ?", email, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, s.recordFailure(throttle, now)
	}
	if err != nil {
		return nil, nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, s.recordFailure(throttle, now)
	}

	throttle.Reset()
	if err := s.DB.Save(throttle).Error; err != nil {
		return nil, nil, err
	}

	tokens, err := s.IssueTokens(&user)
	if err != nil {
		return nil, nil, err
	}
	return &user, tokens, nil
}

func (s *AuthService) loadThrottle(email, ip string) (*models.LoginThrottle, error) {
	var throttle models.LoginThrottle
	err := s.DB.Where("email = ? AND ip = ?", email, ip).First(&throttle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		throttle = models.LoginThrottle{Email: email, IP: ip}
		if err := s.DB.Create(&throttle).Error; err != nil {
			return nil, err
		}
		return &throttle, nil
	}
	if err != nil {
		return nil, err
	}
	return &throttle, nil
}

func (s *AuthService) recordFailure(throttle *models.LoginThrottle, now time.Time) error {
	throttle.RegisterFailure(now)
	if err := s.DB.Save(throttle).Error; err != nil {
		return err
	}
	serviceLog.WithFields(logrus.Fields{"email": throttle.Email, "ip": throttle.IP, "failures": throttle.FailedCount}).
		Warn("[Auth] failed login attempt")
	return &UnauthorizedError{Message: "invalid credentials"}
}

// IssueTokens signs a fresh access/refresh pair for the user.
func (s *AuthService) IssueTokens(user *models.User) (*TokenPair, error) {
	access, err := s.signToken(user, "access", accessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.signToken(user, "refresh", refreshTokenTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) signToken(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := authClaims{
		UserID:    user.ID,
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// VerifyToken parses a token of the given type and returns the user id and
// role baked into it.
func (s *AuthService) VerifyToken(tokenString, wantType string) (uint, int, error) {
	var claims authClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, 0, &UnauthorizedError{Message: "invalid or expired token"}
	}
	if claims.TokenType != wantType {
		return 0, 0, &UnauthorizedError{Message: "wrong token type"}
	}
	return claims.UserID, claims.Role, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *AuthService) Refresh(refreshToken string) (*TokenPair, error) {
	userID, _, err := s.VerifyToken(refreshToken, "refresh")
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := s.DB.Where("id = ? AND is_active = ?", userID, true).First(&user).Error; err != nil {
		return nil, &UnauthorizedError{Message: "invalid or expired token"}
	}
	return s.IssueTokens(&user)
}

func (s *AuthService) ChangePassword(user *models.User, currentPassword, newPassword string) error {
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return &UnauthorizedError{Message: "current password is incorrect"}
	}
	if len(newPassword) < 8 {
		return validationErrorf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return s.DB.Model(user).Update("password_hash", string(hash)).Error
}

// RequestPasswordReset creates a single-use reset token. Always succeeds
// from the caller's perspective so the endpoint does not leak which emails
// exist; the token is empty when the account is unknown.
func (s *AuthService) RequestPasswordReset(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	err := s.DB.Where("email = ? AND is_active = ?", email, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating reset token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	record := models.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := s.DB.Create(&record).Error; err != nil {
		return "", err
	}
	return token, nil
}

// ConfirmPasswordReset consumes a valid token and sets the new password.
func (s *AuthService) ConfirmPasswordReset(token, newPassword string) error {
	if len(newPassword) < 8 {
		return validationErrorf("password must be at least 8 characters")
	}

	var record models.PasswordResetToken
	err := s.DB.Where("token = ?", token).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return validationErrorf("invalid or expired reset token")
	}
	if err != nil {
		return err
	}
	if !record.IsValid(time.Now()) {
		return validationErrorf("invalid or expired reset token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", record.UserID).
			Update("password_hash", string(hash)).Error; err != nil {
			return err
		}
		return tx.Model(&record).Update("used", true).Error
	})
}

// ProfilePayload is the input for profile updates; nil means unchanged.
type ProfilePayload struct {
	DisplayName *string          `json:"display_name"`
	City        *string          `json:"city"`
	Country     *string          `json:"country"`
	Latitude    *decimal.Decimal `json:"latitude"`
	Longitude   *decimal.Decimal `json:"longitude"`
}

func (s *AuthService) UpdateProfile(user *models.User, payload *ProfilePayload) (*models.User, error) {
	updates := map[string]any{}
	if payload.DisplayName != nil {
		if strings.TrimSpace(*payload.DisplayName) == "" {
			return nil, validationErrorf("display_name cannot be empty")
		}
		updates["display_name"] = strings.TrimSpace(*payload.DisplayName)
	}
	if payload.City != nil {
		updates["city"] = *payload.City
	}
	if payload.Country != nil {
		updates["country"] = *payload.Country
	}
	if payload.Latitude != nil {
		updates["latitude"] = *payload.Latitude
	}
	if payload.Longitude != nil {
		updates["longitude"] = *payload.Longitude
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.DB.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// SetAvatarURL persists an uploaded avatar's public URL.
func (s *AuthService) SetAvatarURL(user *models.User, url string) error {
	return s.DB.Model(user).Update("avatar_url", url).Error
}

func (s *AuthService) GetUser(id uint) (*models.User, error) {
	var user models.User
	err := s.DB.Where("id = ? AND is_active = ?", id, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "user"}
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

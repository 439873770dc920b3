package usecases

import (
	"errors"
	"fmt"
	"time"

	"autoforward/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthUsecase authenticates dashboard admins, not bot users.
type AuthUsecase struct {
	adminRepo *repository.AdminRepository
	jwtSecret []byte
}

func NewAuthUsecase(repo *repository.AdminRepository, secret string) *AuthUsecase {
	return &AuthUsecase{
		adminRepo: repo,
		jwtSecret: []byte(secret),
	}
}

func (uc *AuthUsecase) Register(username, password string) error {
	existing, err := uc.adminRepo.GetByUsername(username)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.New("username already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &repository.Admin{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         "admin",
	}

	return uc.adminRepo.Create(admin)
}

func (uc *AuthUsecase) Login(username, password string) (string, error) {
	admin, err := uc.adminRepo.GetByUsername(username)
	if err != nil {
		return "", err
	}
	if admin == nil {
		return "", errors.New("invalid credentials")
	}

	err = bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password))
	if err != nil {
		return "", errors.New("invalid credentials")
	}

	// Generate JWT
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": admin.ID,
		"role":    admin.Role,
		"exp":     time.Now().Add(time.Hour * 24).Unix(),
	})

	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}

	return tokenString, nil
}

// EnsureAdmin creates a root account if none exists (called on startup)
func (uc *AuthUsecase) EnsureAdmin(username, password string) error {
	admin, err := uc.adminRepo.GetByUsername(username)
	if err != nil {
		return err
	}
	if admin == nil {
		hashed, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		root := &repository.Admin{
			Username:     username,
			PasswordHash: string(hashed),
			Role:         "admin",
		}
		return uc.adminRepo.Create(root)
	}
	return nil
}

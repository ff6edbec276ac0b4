package services

import (
	"errors"
	"strings"

	"stockroom/internal/domain"
	"stockroom/internal/repos"

	"golang.org/x/crypto/bcrypt"
)

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50,username"`
	Email    string `json:"email" validate:"required,mail"`
	Password string `json:"password" validate:"required,min=6,password"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,mail"`
	Password string `json:"password" validate:"required"`
}

type ProfileInput struct {
	Username string `json:"username" validate:"required,min=3,max=50,username"`
	Email    string `json:"email" validate:"required,mail"`
}

type PasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,password"`
}

type AuthService struct {
	Users  *repos.UserRepo
	Tokens *Tokens
	// Cost is the bcrypt work factor for new hashes.
	Cost int
}

func NewAuthService(users *repos.UserRepo, tokens *Tokens) *AuthService {
	return &AuthService{Users: users, Tokens: tokens, Cost: 12}
}

// Register creates a user with role "user" and returns it with a fresh token.
func (s *AuthService) Register(in RegisterInput) (*domain.User, string, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := check(in); err != nil {
		return nil, "", err
	}
	exists, err := s.Users.Exists(in.Email, in.Username)
	if err != nil {
		return nil, "", err
	}
	if exists {
		return nil, "", conflict("User with this username or email already exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.Cost)
	if err != nil {
		return nil, "", err
	}
	u := &domain.User{Username: in.Username, Email: in.Email, Hash: string(hash), Role: domain.RoleUser}
	if err := s.Users.Create(u); err != nil {
		if errors.Is(err, repos.ErrConflict) {
			return nil, "", conflict("User with this username or email already exists")
		}
		return nil, "", err
	}
	tok, err := s.Tokens.Issue(u)
	return u, tok, err
}

// Login checks credentials. Unknown email and wrong password both yield ErrBadCreds.
func (s *AuthService) Login(in LoginInput) (*domain.User, string, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := check(in); err != nil {
		return nil, "", err
	}
	u, err := s.Users.ByEmail(in.Email)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, "", ErrBadCreds
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(in.Password)) != nil {
		return nil, "", ErrBadCreds
	}
	tok, err := s.Tokens.Issue(u)
	return u, tok, err
}

// Authenticate resolves a bearer token to a live user.
func (s *AuthService) Authenticate(raw string) (*domain.User, error) {
	c, err := s.Tokens.Verify(raw)
	if err != nil {
		return nil, err
	}
	u, err := s.Users.ByID(c.UserID)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, notFound("User not found")
		}
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Me(userID int64) (*domain.User, error) {
	u, err := s.Users.ByID(userID)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, notFound("User not found")
	}
	return u, err
}

func (s *AuthService) UpdateProfile(userID int64, in ProfileInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := check(in); err != nil {
		return nil, err
	}
	u, err := s.Users.UpdateProfile(userID, in.Username, in.Email)
	switch {
	case errors.Is(err, repos.ErrConflict):
		return nil, conflict("Username or email is already taken")
	case errors.Is(err, repos.ErrNotFound):
		return nil, notFound("User not found")
	}
	return u, err
}

func (s *AuthService) ChangePassword(userID int64, in PasswordInput) error {
	if err := check(in); err != nil {
		return err
	}
	u, err := s.Me(userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(in.CurrentPassword)) != nil {
		return invalid("currentPassword", "is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.Cost)
	if err != nil {
		return err
	}
	return s.Users.SetPassword(userID, string(hash))
}

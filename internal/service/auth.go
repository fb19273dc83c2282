package service

import (
	"context"
	"errors"
	"strings"

	"bitwise74/recipe-api/internal/access"
	"bitwise74/recipe-api/internal/model"
	"bitwise74/recipe-api/pkg/apperr"
	"bitwise74/recipe-api/pkg/security"

	"gorm.io/gorm"
)

var errBadCredentials = apperr.New(apperr.Unauthenticated, "No active account found with the given credentials")

type LoginUser struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	IsNutritionist bool   `json:"is_nutritionist"`
	IsStaff        bool   `json:"is_staff"`
}

type LoginResult struct {
	security.TokenPair
	User LoginUser `json:"user"`
}

type Authenticator struct {
	db       *gorm.DB
	argon    *security.ArgonHash
	sessions *Sessions
}

func NewAuthenticator(db *gorm.DB, argon *security.ArgonHash, sessions *Sessions) *Authenticator {
	return &Authenticator{db: db, argon: argon, sessions: sessions}
}

func (a *Authenticator) find(ctx context.Context, column, value string) (*model.Account, error) {
	var acc model.Account
	err := a.db.WithContext(ctx).
		Preload("Profile").
		Preload("Nutritionist").
		Where(column+" = ?", value).
		First(&acc).
		Error
	if err != nil {
		return nil, err
	}

	return &acc, nil
}

// Login checks the credentials of an account by username or email. Staff
// always get tokens, everyone else needs a verified profile first.
func (a *Authenticator) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, apperr.New(apperr.Validation, "Username and password are required.")
	}

	// usernames take precedence, emails are only tried when no username matches
	acc, err := a.find(ctx, "username", login)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		acc, err = a.find(ctx, "email", login)
	}

	return a.authenticate(acc, err, password)
}

// LoginByEmail is Login for clients that said the login is an email
func (a *Authenticator) LoginByEmail(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.New(apperr.Validation, "Username and password are required.")
	}

	acc, err := a.find(ctx, "email", email)
	return a.authenticate(acc, err, password)
}

func (a *Authenticator) authenticate(acc *model.Account, err error, password string) (*LoginResult, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errBadCredentials
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to load account", err)
	}

	ok, err := a.argon.VerifyPasswd(password, acc.PasswordHash)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to verify password", err)
	}

	if !ok || !acc.IsActive {
		return nil, errBadCredentials
	}

	p := access.Resolve(acc)

	switch {
	case p.Role == access.RoleNone:
		return nil, apperr.New(apperr.Validation, "Profile for given user does not exist.")
	case !p.Verified():
		return nil, apperr.New(apperr.Validation, "User is not verified.")
	}

	pair, err := a.sessions.Issue(acc.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		TokenPair: *pair,
		User: LoginUser{
			Username:       acc.Username,
			Email:          acc.Email,
			IsNutritionist: acc.Nutritionist != nil,
			IsStaff:        acc.IsStaff,
		},
	}, nil
}

package internal

import (
	"bitwise74/recipe-api/config"
	"bitwise74/recipe-api/internal/service"
	"bitwise74/recipe-api/internal/storage"
	"bitwise74/recipe-api/pkg/security"

	"gorm.io/gorm"
)

type Deps struct {
	Cfg        *config.Config
	DB         *gorm.DB
	Argon      *security.ArgonHash
	Sessions   *service.Sessions
	Verifier   *service.Verifier
	Registrar  *service.Registrar
	Auth       *service.Authenticator
	Accounts   *service.Accounts
	Catalog    *service.Catalog
	Moderation *service.Moderation
	Generator  service.Generator
	Images     storage.ImageStore
	MailQueue  service.MailQueue
}

// NewDeps wires every service on top of the given collaborators
func NewDeps(cfg *config.Config, db *gorm.DB, queue service.MailQueue, images storage.ImageStore, gen service.Generator) *Deps {
	argon := security.New()
	sessions := service.NewSessions(db, security.NewSessionSigner(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL))
	verifier := service.NewVerifier(
		db,
		security.NewVerificationTokens(cfg.JWT.Secret, cfg.Verification.TTL),
		queue,
		cfg.Verification.URL,
		cfg.Verification.ResendCooldown,
	)

	return &Deps{
		Cfg:        cfg,
		DB:         db,
		Argon:      argon,
		Sessions:   sessions,
		Verifier:   verifier,
		Registrar:  service.NewRegistrar(db, argon, verifier, cfg.Accounts.UnverifiedTTL),
		Auth:       service.NewAuthenticator(db, argon, sessions),
		Accounts:   service.NewAccounts(db, argon, images),
		Catalog:    service.NewCatalog(db, images),
		Moderation: service.NewModeration(db),
		Generator:  gen,
		Images:     images,
		MailQueue:  queue,
	}
}

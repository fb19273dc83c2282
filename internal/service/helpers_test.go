package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"bitwise74/recipe-api/internal"
	"bitwise74/recipe-api/internal/access"
	"bitwise74/recipe-api/internal/model"
	"bitwise74/recipe-api/internal/service"
	"bitwise74/recipe-api/internal/storage"
	"bitwise74/recipe-api/internal/testutil"
	"bitwise74/recipe-api/pkg/apperr"

	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	text   string
	err    error
	prompt string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.text, g.err
}

type fakeSender struct {
	mu   sync.Mutex
	sent []service.VerificationMail
	err  error
}

func (s *fakeSender) Send(_ context.Context, m service.VerificationMail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	s.sent = append(s.sent, m)
	return nil
}

func (s *fakeSender) Sent() []service.VerificationMail {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]service.VerificationMail(nil), s.sent...)
}

type env struct {
	d     *internal.Deps
	mails *testutil.MailQueue
	gen   *fakeGenerator
}

func newEnv(t *testing.T) *env {
	t.Helper()

	images, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	mails := &testutil.MailQueue{}
	gen := &fakeGenerator{}

	return &env{
		d:     internal.NewDeps(testutil.Config(), testutil.NewDB(t), mails, images, gen),
		mails: mails,
		gen:   gen,
	}
}

// tokensFromURL splits a verification link into its id and verify token
func tokensFromURL(t *testing.T, url string) (string, string) {
	t.Helper()

	parts := strings.Split(strings.TrimRight(url, "/"), "/")
	require.GreaterOrEqual(t, len(parts), 2)

	return parts[len(parts)-2], parts[len(parts)-1]
}

func (e *env) register(t *testing.T, role access.Role, username string) *model.Account {
	t.Helper()

	var n *service.NutritionistInput
	if role == access.RoleNutritionist {
		years := 5
		n = &service.NutritionistInput{Qualification: "MSc Dietetics", YearsOfExperience: &years}
	}

	a, err := e.d.Registrar.Register(context.Background(), role, service.AccountInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	}, n)
	require.NoError(t, err)

	return a
}

// verified registers an account and confirms it with the mailed link
func (e *env) verified(t *testing.T, role access.Role, username string) *access.Principal {
	t.Helper()

	a := e.register(t, role, username)

	mails := e.mails.Sent()
	require.NotEmpty(t, mails)

	idToken, verifyToken := tokensFromURL(t, mails[len(mails)-1].URL)
	require.NoError(t, e.d.Verifier.Confirm(context.Background(), idToken, verifyToken))

	return e.principal(t, a.ID)
}

func (e *env) staff(t *testing.T) *access.Principal {
	t.Helper()

	require.NoError(t, e.d.Accounts.EnsureStaff(context.Background(), testutil.Config().Admin))

	var a model.Account
	require.NoError(t, e.d.DB.Where("is_staff = ?", true).First(&a).Error)

	return e.principal(t, a.ID)
}

func (e *env) principal(t *testing.T, id uint) *access.Principal {
	t.Helper()

	var a model.Account
	require.NoError(t, e.d.DB.Preload("Profile").Preload("Nutritionist").First(&a, id).Error)

	return access.Resolve(&a)
}

func requireKind(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()

	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), err.Error())
	if msg != "" {
		require.Equal(t, msg, apperr.Message(err))
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qlphonglab/labauth/internal/hash"
	"github.com/qlphonglab/labauth/internal/models"
	"github.com/qlphonglab/labauth/internal/repo"
	"github.com/qlphonglab/labauth/internal/tokens"
	"github.com/qlphonglab/labauth/internal/validate"
)

func newTestService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// a single connection keeps every goroutine on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}))

	svc := &AuthService{
		Repo:   &repo.GormRepo{DB: db},
		Secret: []byte("test-jwt-secret"),
	}
	return svc, db
}

func registerInput(username, email string) validate.RegisterInput {
	return validate.RegisterInput{
		Username: username,
		Email:    email,
		Password: "Sup3r$ecret",
		FullName: "Nguyen Van An",
	}
}

func TestRegister_Success(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, registerInput("an.nguyen", "an@example.com"))
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	assert.Equal(t, "user", user.Role)
	assert.True(t, user.IsActive)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.NotEqual(t, "Sup3r$ecret", stored.PasswordHash)
	assert.True(t, hash.CheckPassword(stored.PasswordHash, "Sup3r$ecret"))
	assert.False(t, hash.CheckPassword(stored.PasswordHash, "Sup3r$ecret2"))
}

func TestRegister_ValidationErrors(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), validate.RegisterInput{Username: "an"})
	require.Error(t, err)

	var fe FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe, "email")
	assert.Contains(t, fe, "password")
	assert.Contains(t, fe, "full_name")
	assert.NotContains(t, fe, "username")
}

func TestRegister_UsernameConflict(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("an.nguyen", "an@example.com"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerInput("an.nguyen", "other@example.com"))
	require.Error(t, err)

	var fe FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe, "username")
	assert.NotContains(t, fe, "email")

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRegister_EmailConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("an.nguyen", "an@example.com"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerInput("binh.le", "an@example.com"))
	require.Error(t, err)

	var fe FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe, "email")
	assert.NotContains(t, fe, "username")
}

func TestRegister_BothFieldsConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("an.nguyen", "an@example.com"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerInput("an.nguyen", "an@example.com"))
	require.Error(t, err)

	var fe FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe, "username")
	assert.Contains(t, fe, "email")
}

func TestRegister_DuplicateInsertTranslated(t *testing.T) {
	// Simulates losing the race between the uniqueness pre-check and the
	// insert: the storage-level violation must come back as the same
	// per-field conflict, never a raw error.
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("an.nguyen", "an@example.com"))
	require.NoError(t, err)

	dup := models.User{
		Username:     "an.nguyen",
		Email:        "race@example.com",
		PasswordHash: "x",
		FullName:     "Race",
		Role:         "user",
		IsActive:     true,
	}
	err = svc.Repo.Create(ctx, &dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, repo.ErrDuplicate)
}

func TestRegister_ConcurrentSameUsername(t *testing.T) {
	svc, db := newTestService(t)

	results := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := "an@example.com"
			if i == 1 {
				email = "an.other@example.com"
			}
			_, results[i] = svc.Register(context.Background(), registerInput("an.nguyen", email))
		}(i)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var fe FieldErrors
		require.True(t, errors.As(err, &fe), "loser must get the conflict shape, got: %v", err)
		assert.Contains(t, fe, "username")
		conflicted++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestLogin_Success(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, registerInput("an.nguyen", "an@example.com"))
	require.NoError(t, err)

	for _, identifier := range []string{"an.nguyen", "an@example.com"} {
		res, err := svc.Login(ctx, identifier, "Sup3r$ecret")
		require.NoError(t, err, "identifier %q", identifier)
		require.NotEmpty(t, res.Token)

		claims, err := tokens.Parse(res.Token, svc.Secret)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, "an@example.com", claims.Email)
		assert.Equal(t, "user", claims.Role)
	}
}

func TestLogin_UnknownAndWrongPasswordLookAlike(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("an.nguyen", "an@example.com"))
	require.NoError(t, err)

	_, errUnknown := svc.Login(ctx, "nobody", "Sup3r$ecret")
	_, errWrongPw := svc.Login(ctx, "an.nguyen", "Wr0ng$ecret")

	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPw, ErrInvalidCredentials)
}

func TestLogin_DisabledAccount(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, registerInput("an.nguyen", "an@example.com"))
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)

	// correct credentials, disabled account
	_, err = svc.Login(ctx, "an.nguyen", "Sup3r$ecret")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestListUsers_SearchSemantics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seed := []struct{ username, email, fullName string }{
		{"ana.tran", "ana@example.com", "Tran Thi Hoa"},
		{"binh.le", "binh@example.com", "Le Van Ana"},
		{"chi.pham", "chi@example.com", "Pham Minh Chi"},
	}
	for _, s := range seed {
		in := registerInput(s.username, s.email)
		in.FullName = s.fullName
		_, err := svc.Register(ctx, in)
		require.NoError(t, err)
	}

	all, err := svc.ListUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// matches username on one row, full name on another, case-insensitive
	matched, err := svc.ListUsers(ctx, "ANA")
	require.NoError(t, err)
	require.Len(t, matched, 2)
	names := []string{matched[0].Username, matched[1].Username}
	assert.ElementsMatch(t, []string{"ana.tran", "binh.le"}, names)

	none, err := svc.ListUsers(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, none)
}

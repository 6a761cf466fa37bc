package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/qlphonglab/labauth/internal/hash"
	"github.com/qlphonglab/labauth/internal/logging"
	"github.com/qlphonglab/labauth/internal/models"
	"github.com/qlphonglab/labauth/internal/repo"
	"github.com/qlphonglab/labauth/internal/service/search"
	"github.com/qlphonglab/labauth/internal/tokens"
	"github.com/qlphonglab/labauth/internal/validate"
)

// Unknown identifier and wrong password collapse into ErrInvalidCredentials
// so responses never reveal whether an account exists. A disabled account is
// the one condition disclosed distinctly.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
)

// dummyHash is compared against the supplied password when no row matches
// the identifier, so the miss path costs the same bcrypt work as a hit.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// FieldErrors maps field names to human-readable reasons. Used for both
// validation failures and uniqueness conflicts.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid fields: " + strings.Join(keys, ", ")
}

type LoginResult struct {
	Token string
	User  models.User
}

type AuthService struct {
	Repo   *repo.GormRepo
	Secret []byte

	// Search is the optional Elasticsearch mirror; nil means SQL only.
	Search *search.UserSearch
}

func (s *AuthService) Register(ctx context.Context, in validate.RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if errs := validate.RegisterInputErrors(in); len(errs) > 0 {
		return nil, FieldErrors(errs)
	}

	usernameTaken, emailTaken, err := s.Repo.FindConflicts(ctx, in.Username, in.Email)
	if err != nil {
		l.Error("conflict check failed", "error", err)
		return nil, err
	}
	if usernameTaken || emailTaken {
		return nil, conflictErrors(usernameTaken, emailTaken)
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("password hash failed", "error", err)
		return nil, err
	}

	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: pwHash,
		FullName:     in.FullName,
		PhoneNumber:  in.PhoneNumber,
		Role:         "user",
		IsActive:     true,
	}

	if err := s.Repo.Create(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			// Lost the race between the pre-check and the insert. Resolve
			// which field collided so the caller gets the same conflict
			// shape as the pre-check.
			usernameTaken, emailTaken, cerr := s.Repo.FindConflicts(ctx, in.Username, in.Email)
			if cerr != nil || (!usernameTaken && !emailTaken) {
				usernameTaken, emailTaken = true, true
			}
			return nil, conflictErrors(usernameTaken, emailTaken)
		}
		l.Error("insert failed", "error", err)
		return nil, err
	}

	if s.Search != nil {
		if err := s.Search.IndexUser(ctx, user); err != nil {
			l.Warn("user index mirror failed", "user_id", user.ID, "error", err)
		}
	}

	l.Info("user registered", "user_id", user.ID, "username", user.Username)
	return &user, nil
}

func conflictErrors(usernameTaken, emailTaken bool) FieldErrors {
	errs := FieldErrors{}
	if usernameTaken {
		errs["username"] = "username already exists"
	}
	if emailTaken {
		errs["email"] = "email already exists"
	}
	return errs
}

func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			hash.CheckPassword(dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		l.Error("identifier lookup failed", "error", err)
		return nil, err
	}

	// The compare runs before the active check returns, so a disabled
	// account costs the same as a bad password.
	match := hash.CheckPassword(user.PasswordHash, password)

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	if !match {
		return nil, ErrInvalidCredentials
	}

	token, err := tokens.Issue(s.Secret, user.ID, user.Email, user.Role)
	if err != nil {
		l.Error("token issue failed", "error", err)
		return nil, err
	}

	l.Info("login successful", "user_id", user.ID)
	return &LoginResult{Token: token, User: *user}, nil
}

// ListUsers returns public-safe user records whose username or full name
// contains the term (case-insensitive, OR semantics); an empty term returns
// every user. When the Elasticsearch mirror is configured it serves non-empty
// searches, with the relational store as fallback.
func (s *AuthService) ListUsers(ctx context.Context, term string) ([]models.User, error) {
	if s.Search != nil && term != "" {
		users, err := s.Search.Search(ctx, term)
		if err == nil {
			return users, nil
		}
		logging.FromContext(ctx).Warn("search mirror failed, falling back to sql", "error", err)
	}
	return s.Repo.Search(ctx, term)
}

package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/qlphonglab/labauth/internal/models"
)

// FindByIdentifier matches a user by username OR email. Comparison case
// sensitivity follows the storage collation (case-sensitive on Postgres,
// usually case-insensitive on MySQL); no normalization is applied here.
func (r *GormRepo) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).
		Where("email = ? OR username = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		if errNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindConflicts reports which of username/email already belong to existing
// rows. Both can collide independently, against different rows.
func (r *GormRepo) FindConflicts(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	var existing []models.User
	err = r.DB.WithContext(ctx).
		Select("username", "email").
		Where("username = ? OR email = ?", username, email).
		Find(&existing).Error
	if err != nil {
		return false, false, err
	}

	for _, u := range existing {
		if u.Username == username {
			usernameTaken = true
		}
		if u.Email == email {
			emailTaken = true
		}
	}
	return usernameTaken, emailTaken, nil
}

func (r *GormRepo) Create(ctx context.Context, u *models.User) error {
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Search returns users whose username or full name contains the term,
// case-insensitive on both sides. An empty term returns every user.
// The listing is unpaginated; the intended scale is a lab's user roster.
func (r *GormRepo) Search(ctx context.Context, term string) ([]models.User, error) {
	users := make([]models.User, 0)
	q := r.DB.WithContext(ctx)
	if term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(username) LIKE ? OR LOWER(full_name) LIKE ?", pattern, pattern)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

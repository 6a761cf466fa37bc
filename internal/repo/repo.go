package repo

import (
	"errors"

	"gorm.io/gorm"
)

// ErrDuplicate reports a storage-level uniqueness violation on insert. It is
// how the race between the uniqueness pre-check and the insert surfaces.
var ErrDuplicate = errors.New("duplicate user")

var ErrNotFound = errors.New("user not found")

type GormRepo struct {
	DB *gorm.DB
}

func errNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

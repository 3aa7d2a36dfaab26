package domain

import (
	"fmt"
	"strings"

	apperrors "analyzeit/internal/platform/errors"
)

// User is the signed-in identity all remote documents are keyed by.
type User struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Photo string `json:"photo"`
}

func (u User) Normalize() User {
	u.UID = strings.TrimSpace(u.UID)
	u.Email = strings.TrimSpace(u.Email)
	u.Name = strings.TrimSpace(u.Name)
	u.Photo = strings.TrimSpace(u.Photo)
	return u
}

func (u User) Validate() error {
	if u.UID == "" {
		return fmt.Errorf("%w: uid is required", apperrors.ErrInvalidInput)
	}
	return nil
}

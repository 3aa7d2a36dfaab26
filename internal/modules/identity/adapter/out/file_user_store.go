package out

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"analyzeit/internal/modules/identity/domain"
	identityout "analyzeit/internal/modules/identity/port/out"
	apperrors "analyzeit/internal/platform/errors"
)

type FileUserStore struct {
	path string
}

func NewFileUserStore(path string) identityout.UserStore {
	return &FileUserStore{path: path}
}

func (s *FileUserStore) Save(_ context.Context, user domain.User) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	payload, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write user: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace user: %w", err)
	}
	return nil
}

func (s *FileUserStore) Load(_ context.Context) (domain.User, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.User{}, apperrors.ErrNoIdentity
		}
		return domain.User{}, fmt.Errorf("read user: %w", err)
	}
	user := domain.User{}
	if err := json.Unmarshal(payload, &user); err != nil {
		return domain.User{}, fmt.Errorf("decode user: %w", err)
	}
	if user.UID == "" {
		return domain.User{}, apperrors.ErrNoIdentity
	}
	return user, nil
}

func (s *FileUserStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("clear user: %w", err)
	}
	return nil
}

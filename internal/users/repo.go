package users

import (
	"strings"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/internal/repository"
	"github.com/angelmondragon/hostelhub-backend/pkg/config"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
	"github.com/angelmondragon/hostelhub-backend/pkg/security"
)

// FindByEmail looks a user up case-insensitively inside tx.
func FindByEmail(tx *repository.Tx, email string) (docstore.Record, bool) {
	want := strings.ToLower(strings.TrimSpace(email))
	if want == "" {
		return nil, false
	}
	return tx.Find(enums.CollectionUsers, func(rec docstore.Record) bool {
		return strings.ToLower(strings.TrimSpace(rec.String("email"))) == want
	})
}

// HashPasswordField replaces a plaintext password on rec with its argon2id
// hash. Already hashed values are kept.
func HashPasswordField(rec docstore.Record, cfg config.PasswordConfig) error {
	raw, ok := rec["password"]
	if !ok {
		return nil
	}
	password, _ := raw.(string)
	if password == "" {
		delete(rec, "password")
		return nil
	}
	if security.IsHashed(password) {
		return nil
	}
	hash, err := security.HashPassword(password, cfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	rec["password"] = hash
	return nil
}

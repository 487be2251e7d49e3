package users

import (
	"strconv"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
)

// sensitiveFields never leave the service.
var sensitiveFields = []string{"password", "passwordHash"}

// UserDTO is the typed view of a user record used by login.
type UserDTO struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Role                enums.Role `json:"role"`
	HostelID            string     `json:"hostelId,omitempty"`
	Status              string     `json:"status,omitempty"`
	IsLocked            bool       `json:"isLocked"`
	FailedLoginAttempts int        `json:"failedLoginAttempts"`
}

// FromRecord reads the login-relevant fields of rec.
func FromRecord(rec docstore.Record) UserDTO {
	role, _ := enums.ParseRole(rec.String("role"))
	return UserDTO{
		ID:                  rec.ID(),
		Name:                rec.String("name"),
		Email:               rec.String("email"),
		Role:                role,
		HostelID:            rec.HostelID(),
		Status:              rec.String("status"),
		IsLocked:            rec.Bool("isLocked"),
		FailedLoginAttempts: FailedAttempts(rec),
	}
}

// Public returns a copy of rec without credential fields.
func Public(rec docstore.Record) docstore.Record {
	if rec == nil {
		return nil
	}
	out := rec.Clone()
	for _, field := range sensitiveFields {
		delete(out, field)
	}
	return out
}

// PublicList applies Public to every record.
func PublicList(records []docstore.Record) []docstore.Record {
	out := make([]docstore.Record, len(records))
	for i, rec := range records {
		out[i] = Public(rec)
	}
	return out
}

// FailedAttempts reads the failed login counter, tolerating strings and numbers.
func FailedAttempts(rec docstore.Record) int {
	n, err := strconv.Atoi(rec.String("failedLoginAttempts"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

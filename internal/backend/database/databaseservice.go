package database

import (
	"database/sql"
	"errors"
	"time"
)

// Upload roles. Each session holds at most one image per role.
const (
	RoleFather = "father"
	RoleMother = "mother"
	RoleChild  = "child"
)

// Roles lists all valid upload roles.
var Roles = []string{RoleFather, RoleMother, RoleChild}

// ErrNotFound is returned when a session has no image for a role.
var ErrNotFound = errors.New("image not found")

// UploadedImage is one stored family photo.
type UploadedImage struct {
	ID              string    `db:"id"`
	SessionID       string    `db:"session_id"`
	Role            string    `db:"role"`
	OriginalImage   []byte    `db:"original_image"`   // Bytes as uploaded
	NormalizedImage []byte    `db:"normalized_image"` // RGB PNG fed to the verifier
	UpdatedAt       time.Time `db:"updated_at"`
}

// DatabaseService stores the session-scoped uploads between the upload
// requests and the compare request. Rows never outlive the session TTL;
// DeleteExpired is swept periodically.
type DatabaseService interface {
	CreateDatabase() (*sql.DB, error)
	DoesDatabaseExist() bool
	Close() error

	// UpsertImage stores original and normalized bytes for a role,
	// replacing any previous upload of that role in the session.
	UpsertImage(sessionID, role string, original, normalized []byte) (string, error)
	GetImage(sessionID, role string) (*UploadedImage, error)
	DeleteSessionImages(sessionID string) error
	DeleteExpired(olderThan time.Time) (int64, error)
}

// ValidRole reports whether role names one of the three family slots.
func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

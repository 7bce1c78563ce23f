package database

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jo-hoe/kinface/internal/common"
)

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
}

func NewSQLiteDatabase(connectionString string) (DatabaseService, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase() (*sql.DB, error) {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS uploads (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		original_image BLOB,
		normalized_image BLOB,
		updated_at INTEGER NOT NULL,
		UNIQUE(session_id, role)
	)`)
	if err != nil {
		return nil, err
	}

	return s.db, nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist() bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	err := s.db.Ping()
	return err == nil
}

func (s *SQLiteDatabase) UpsertImage(sessionID, role string, original, normalized []byte) (string, error) {
	id, err := common.NewID()
	if err != nil {
		return "", err
	}

	_, err = s.db.Exec(`INSERT INTO uploads (id, session_id, role, original_image, normalized_image, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, role) DO UPDATE SET
			original_image = excluded.original_image,
			normalized_image = excluded.normalized_image,
			updated_at = excluded.updated_at`,
		id, sessionID, role, original, normalized, time.Now().Unix())
	if err != nil {
		return "", err
	}

	// The conflict branch keeps the existing row id.
	row := s.db.QueryRow("SELECT id FROM uploads WHERE session_id = ? AND role = ?", sessionID, role)
	if err := row.Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteDatabase) GetImage(sessionID, role string) (*UploadedImage, error) {
	row := s.db.QueryRow(`SELECT id, session_id, role, original_image, normalized_image, updated_at
		FROM uploads WHERE session_id = ? AND role = ?`, sessionID, role)

	var img UploadedImage
	var updatedAt int64
	if err := row.Scan(&img.ID, &img.SessionID, &img.Role, &img.OriginalImage, &img.NormalizedImage, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	img.UpdatedAt = time.Unix(updatedAt, 0)
	return &img, nil
}

func (s *SQLiteDatabase) DeleteSessionImages(sessionID string) error {
	_, err := s.db.Exec("DELETE FROM uploads WHERE session_id = ?", sessionID)
	return err
}

func (s *SQLiteDatabase) DeleteExpired(olderThan time.Time) (int64, error) {
	result, err := s.db.Exec("DELETE FROM uploads WHERE updated_at < ?", olderThan.Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

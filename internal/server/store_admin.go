package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/drawcast/internal/drawday"
)

func (s *SQLiteStore) AdminByEmail(ctx context.Context, email string) (string, string, error) {
	var adminID, passwordHash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash FROM admins WHERE email = ?
	`, email).Scan(&adminID, &passwordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", drawday.ErrNotFound
	}
	return adminID, passwordHash, err
}

func (s *SQLiteStore) CreateAdminSession(ctx context.Context, adminID string) (string, error) {
	sessionID := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_sessions (id, admin_id) VALUES (?, ?)
	`, sessionID, adminID)
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

func (s *SQLiteStore) DeleteAdminSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE id = ?`, sessionID)
	return err
}

func (s *SQLiteStore) AdminFromSession(ctx context.Context, sessionID string) (adminSession, error) {
	sess := adminSession{SessionID: sessionID}
	err := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.email
		FROM admin_sessions s
		JOIN admins a ON a.id = s.admin_id
		WHERE s.id = ?
	`, sessionID).Scan(&sess.AdminID, &sess.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return adminSession{}, errNoAdminSession
	}
	return sess, err
}

// EnsureAdmin creates the admin account when no admin exists yet. It is a
// no-op once any admin is present, so restarting with a different password
// does not overwrite the stored one.
func (s *SQLiteStore) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return false, errors.New("admin email and password are required to seed the first admin")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hashing admin password: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO admins (id, email, password_hash) VALUES (?, ?, ?)
	`, uuid.NewString(), email, string(hash))
	if err != nil {
		return false, err
	}
	return true, nil
}

package server

import (
	"context"

	"github.com/playperu/drawcast/internal/drawday"
)

type adminSession struct {
	SessionID string
	AdminID   string
	Email     string
}

// AdminStore backs admin login and the privilege check.
type AdminStore interface {
	AdminByEmail(ctx context.Context, email string) (adminID, passwordHash string, err error)
	CreateAdminSession(ctx context.Context, adminID string) (sessionID string, err error)
	DeleteAdminSession(ctx context.Context, sessionID string) error
	AdminFromSession(ctx context.Context, sessionID string) (adminSession, error)
}

// Store is everything the HTTP layer needs from persistence.
type Store interface {
	drawday.Repository
	AdminStore
}

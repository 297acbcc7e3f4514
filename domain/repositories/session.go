package repositories

import (
	"context"

	"github.com/medvox/duplex/domain/entities"
)

// SessionRepository defines data access methods for completed capture
// sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *entities.CaptureSession) error
	GetByID(ctx context.Context, id string) (*entities.CaptureSession, error)
	List(ctx context.Context, limit int) ([]*entities.CaptureSession, error)
	Update(ctx context.Context, session *entities.CaptureSession) error
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

// Base is embedded by soft-deletable records (users).
type Base struct {
	ID        uuid.UUID  `db:"id"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

// BaseNoDelete is embedded by mutable records that are never deleted.
type BaseNoDelete struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func NewBaseNoDelete(at time.Time) BaseNoDelete {
	return BaseNoDelete{ID: uuid.New(), CreatedAt: at, UpdatedAt: at}
}

// BaseSimple is embedded by append-only rows such as history and audit.
type BaseSimple struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

func NewBaseSimple(at time.Time) BaseSimple {
	return BaseSimple{ID: uuid.New(), CreatedAt: at}
}

package postgresql

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cmlabs-hris/timeclock-go/internal/pkg/database"
)

//go:embed schema.sql
var Schema string

// openSessionIndex enforces one open session per employee.
const openSessionIndex = "attendance_sessions_one_open_idx"

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *database.DB) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

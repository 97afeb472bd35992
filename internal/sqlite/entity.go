package sqlite

import (
	"context"

	"github.com/rpggio/tt/internal/domain/entity"
)

// allocate inserts a bare identity row and returns its id.
func allocate(ctx context.Context, db *DB, kind entity.Kind) (entity.ID, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO entity (kind) VALUES (?)`, string(kind))
	if err != nil {
		return 0, storageErr("allocate "+string(kind), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("allocate "+string(kind), err)
	}
	return entity.ID(id), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

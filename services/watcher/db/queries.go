package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const createSnapshot = `
INSERT INTO availability (item_id, store_name, time, items_available)
VALUES (?, ?, ?, ?)
`

type CreateSnapshotParams struct {
	ItemID         string
	StoreName      string
	Time           int64
	ItemsAvailable int64
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, createSnapshot,
		arg.ItemID,
		arg.StoreName,
		arg.Time,
		arg.ItemsAvailable,
	)
	return err
}

const getLatestAvailability = `
SELECT items_available FROM availability
WHERE item_id = ?
ORDER BY time DESC
LIMIT 1
`

// GetLatestAvailability returns sql.ErrNoRows for an item that has never
// been seen before.
func (q *Queries) GetLatestAvailability(ctx context.Context, itemID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, getLatestAvailability, itemID)
	var itemsAvailable int64
	err := row.Scan(&itemsAvailable)
	return itemsAvailable, err
}

const deleteSnapshotsBefore = `
DELETE FROM availability WHERE time < ?
`

func (q *Queries) DeleteSnapshotsBefore(ctx context.Context, before int64) error {
	_, err := q.db.ExecContext(ctx, deleteSnapshotsBefore, before)
	return err
}

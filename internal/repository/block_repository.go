package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/dalsjofors/hyrservice/internal/model"
)

// BlockRepo provides CRUD access to admin blocks.  Blocks are consulted
// before any reservation decision; an overlapping block always wins over
// remaining capacity.
type BlockRepo struct {
    db *sql.DB
}

// NewBlockRepo returns a BlockRepo bound to the given database.
func NewBlockRepo(db *sql.DB) *BlockRepo { return &BlockRepo{db: db} }

const blockColumns = `id, trailer_type, start_dt, end_dt, reason, created_at`

func scanBlock(row rowScanner) (*model.Block, error) {
    var b model.Block
    if err := row.Scan(&b.ID, &b.TrailerType, &b.StartAt, &b.EndAt, &b.Reason, &b.CreatedAt); err != nil {
        return nil, err
    }
    b.StartAt = b.StartAt.UTC()
    b.EndAt = b.EndAt.UTC()
    b.CreatedAt = b.CreatedAt.UTC()
    return &b, nil
}

// Create inserts a block and returns the persisted row.  The id is never
// reused.  A window whose end is not after its start is rejected with
// ErrInvalidRange.
func (r *BlockRepo) Create(ctx context.Context, t model.TrailerType, start, end time.Time, reason string, now time.Time) (*model.Block, error) {
    if !end.After(start) {
        return nil, ErrInvalidRange
    }
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO trailer_blocks (trailer_type, start_dt, end_dt, reason, created_at)
         VALUES (?, ?, ?, ?, ?)`,
        t, start, end, reason, now)
    if err != nil {
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    return r.GetByID(ctx, id)
}

// GetByID returns a block or ErrNotFound.
func (r *BlockRepo) GetByID(ctx context.Context, id int64) (*model.Block, error) {
    const q = `SELECT ` + blockColumns + ` FROM trailer_blocks WHERE id = ?`
    b, err := scanBlock(r.db.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return nil, ErrNotFound
    }
    return b, err
}

// List returns blocks ordered by start then id.  When both range bounds are
// given only blocks overlapping [start, end) are returned; a single bound
// filters on that side only.
func (r *BlockRepo) List(ctx context.Context, start, end *time.Time) ([]*model.Block, error) {
    q := `SELECT ` + blockColumns + ` FROM trailer_blocks`
    args := []any{}
    switch {
    case start != nil && end != nil:
        q += ` WHERE start_dt < ? AND ? < end_dt`
        args = append(args, *end, *start)
    case start != nil:
        q += ` WHERE end_dt > ?`
        args = append(args, *start)
    case end != nil:
        q += ` WHERE start_dt < ?`
        args = append(args, *end)
    }
    q += ` ORDER BY start_dt, id`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]*model.Block, 0)
    for rows.Next() {
        b, err := scanBlock(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    return out, rows.Err()
}

// Delete removes a block by id and reports whether a row was removed.
// Deleting an absent id is a no-op returning false.
func (r *BlockRepo) Delete(ctx context.Context, id int64) (bool, error) {
    res, err := r.db.ExecContext(ctx, `DELETE FROM trailer_blocks WHERE id = ?`, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// FindOverlap returns the earliest-starting block of the given trailer type
// overlapping [start, end), or nil when none overlaps.  Used as a fast veto
// before capacity counting.
func (r *BlockRepo) FindOverlap(ctx context.Context, t model.TrailerType, start, end time.Time) (*model.Block, error) {
    return r.findOverlap(ctx, r.db, t, start, end)
}

// FindOverlapTx is the in-transaction variant used by the reserve path.
func (r *BlockRepo) FindOverlapTx(ctx context.Context, tx *sql.Tx, t model.TrailerType, start, end time.Time) (*model.Block, error) {
    return r.findOverlap(ctx, tx, t, start, end)
}

type querier interface {
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *BlockRepo) findOverlap(ctx context.Context, q querier, t model.TrailerType, start, end time.Time) (*model.Block, error) {
    const query = `SELECT ` + blockColumns + ` FROM trailer_blocks
                   WHERE trailer_type = ? AND start_dt < ? AND ? < end_dt
                   ORDER BY start_dt LIMIT 1`
    b, err := scanBlock(q.QueryRowContext(ctx, query, t, end, start))
    if err == sql.ErrNoRows {
        return nil, nil
    }
    return b, err
}

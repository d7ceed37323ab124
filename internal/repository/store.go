package repository

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/dalsjofors/hyrservice/internal/model"
)

// Store bundles the booking and block repositories behind the transaction
// boundary the reservation engine requires: one exclusive write path per
// trailer type, acquired before any read.  Serialization uses a MySQL named
// lock (one per trailer type, the pools are independent) on top of a
// SERIALIZABLE transaction, mirroring the reserved-lock-up-front pattern so
// the loser of a race observes the winner's committed insert.
type Store struct {
    db       *sql.DB
    bookings *BookingRepo
    blocks   *BlockRepo
}

// NewStore returns a Store over the shared database handle.
func NewStore(db *sql.DB, bookings *BookingRepo, blocks *BlockRepo) *Store {
    return &Store{db: db, bookings: bookings, blocks: blocks}
}

const reserveLockTimeoutSec = 10

func reserveLockName(t model.TrailerType) string {
    return "hyrservice.reserve." + string(t)
}

// Begin opens the exclusive reserve transaction for one trailer type.  The
// caller must Commit or Rollback the returned Tx; both release the named
// lock before ending the transaction.
func (s *Store) Begin(ctx context.Context, t model.TrailerType) (*Tx, error) {
    tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
    if err != nil {
        return nil, err
    }
    name := reserveLockName(t)
    var got sql.NullInt64
    if err := tx.QueryRowContext(ctx, `SELECT GET_LOCK(?, ?)`, name, reserveLockTimeoutSec).Scan(&got); err != nil {
        _ = tx.Rollback()
        return nil, err
    }
    if !got.Valid || got.Int64 != 1 {
        _ = tx.Rollback()
        return nil, fmt.Errorf("repository: reserve lock %q not acquired", name)
    }
    return &Tx{ctx: ctx, tx: tx, lock: name, store: s}, nil
}

// Tx is one serialized reserve transaction.  Its reads observe every write
// committed by previously serialized transactions on the same trailer type.
type Tx struct {
    ctx   context.Context
    tx    *sql.Tx
    lock  string
    store *Store
    done  bool
}

// FindBlockOverlap returns the earliest-starting admin block overlapping
// the window, or nil.
func (t *Tx) FindBlockOverlap(ctx context.Context, tt model.TrailerType, start, end time.Time) (*model.Block, error) {
    return t.store.blocks.FindOverlapTx(ctx, t.tx, tt, start, end)
}

// CountActiveOverlapping counts capacity-consuming bookings overlapping the
// window at now.
func (t *Tx) CountActiveOverlapping(ctx context.Context, tt model.TrailerType, start, end, now time.Time) (int, error) {
    return t.store.bookings.CountActiveOverlappingTx(ctx, t.tx, tt, start, end, now)
}

// InsertBooking creates the booking row and populates its generated ID.
func (t *Tx) InsertBooking(ctx context.Context, b *model.Booking) error {
    return t.store.bookings.InsertTx(ctx, t.tx, b)
}

// SetBookingReference writes the reference derived from the generated ID.
func (t *Tx) SetBookingReference(ctx context.Context, id int64, ref string) error {
    return t.store.bookings.SetReferenceTx(ctx, t.tx, id, ref)
}

func (t *Tx) release() {
    // User-level locks survive commit; they must be dropped explicitly
    // before the pooled connection is returned.
    _, _ = t.tx.ExecContext(t.ctx, `DO RELEASE_LOCK(?)`, t.lock)
}

// Commit releases the reserve lock and commits.
func (t *Tx) Commit() error {
    if t.done {
        return sql.ErrTxDone
    }
    t.done = true
    t.release()
    return t.tx.Commit()
}

// Rollback releases the reserve lock and rolls back.  Safe to defer after
// Commit.
func (t *Tx) Rollback() error {
    if t.done {
        return nil
    }
    t.done = true
    t.release()
    return t.tx.Rollback()
}

package service

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "github.com/dalsjofors/hyrservice/internal/model"
    "github.com/dalsjofors/hyrservice/internal/pricing"
)

// memStore is an in-memory stand-in for the SQL store.  A single mutex
// serializes reserve transactions the same way the named database lock
// does, so the engine's check-then-insert sequence can be raced in tests.
type memStore struct {
    mu       sync.Mutex
    nextID   int64
    bookings map[int64]*model.Booking
    blocks   []*model.Block
}

func newMemStore() *memStore {
    return &memStore{bookings: make(map[int64]*model.Booking)}
}

type memTx struct {
    s        *memStore
    inserted []int64
    done     bool
}

func (s *memStore) Begin(ctx context.Context, t model.TrailerType) (Tx, error) {
    s.mu.Lock()
    return &memTx{s: s}, nil
}

func (tx *memTx) FindBlockOverlap(ctx context.Context, t model.TrailerType, start, end time.Time) (*model.Block, error) {
    return tx.s.findBlockOverlap(t, start, end), nil
}

func (tx *memTx) CountActiveOverlapping(ctx context.Context, t model.TrailerType, start, end, now time.Time) (int, error) {
    return tx.s.countActiveOverlapping(t, start, end, now), nil
}

func (tx *memTx) InsertBooking(ctx context.Context, b *model.Booking) error {
    tx.s.nextID++
    b.ID = tx.s.nextID
    cp := *b
    tx.s.bookings[b.ID] = &cp
    tx.inserted = append(tx.inserted, b.ID)
    return nil
}

func (tx *memTx) SetBookingReference(ctx context.Context, id int64, ref string) error {
    tx.s.bookings[id].Reference = ref
    return nil
}

func (tx *memTx) Commit() error {
    if tx.done {
        return nil
    }
    tx.done = true
    tx.s.mu.Unlock()
    return nil
}

func (tx *memTx) Rollback() error {
    if tx.done {
        return nil
    }
    tx.done = true
    for _, id := range tx.inserted {
        delete(tx.s.bookings, id)
    }
    tx.s.mu.Unlock()
    return nil
}

// Ledger implementation.

func (s *memStore) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
    b, ok := s.bookings[id]
    if !ok {
        return nil, errNotFound
    }
    cp := *b
    return &cp, nil
}

func (s *memStore) List(ctx context.Context, status *model.Status) ([]*model.Booking, error) {
    var out []*model.Booking
    for _, b := range s.bookings {
        if status == nil || b.Status == *status {
            cp := *b
            out = append(out, &cp)
        }
    }
    return out, nil
}

func (s *memStore) Confirm(ctx context.Context, id int64) (bool, error) {
    b, ok := s.bookings[id]
    if !ok || b.Status != model.StatusPendingPayment {
        return false, nil
    }
    b.Status = model.StatusConfirmed
    return true, nil
}

func (s *memStore) Cancel(ctx context.Context, id int64) (bool, error) {
    b, ok := s.bookings[id]
    if !ok || b.Status == model.StatusCancelled {
        return false, nil
    }
    b.Status = model.StatusCancelled
    b.CustomerPhone = nil
    b.CustomerEmail = nil
    b.ReceiptRequested = false
    return true, nil
}

func (s *memStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
    var n int64
    for _, b := range s.bookings {
        if b.Status == model.StatusPendingPayment && b.ExpiresAt != nil && b.ExpiresAt.Before(now) {
            b.Status = model.StatusCancelled
            b.CustomerPhone = nil
            b.CustomerEmail = nil
            b.ReceiptRequested = false
            n++
        }
    }
    return n, nil
}

func (s *memStore) SetSwishStatus(ctx context.Context, id int64, status string) error {
    if b, ok := s.bookings[id]; ok {
        st := status
        b.SwishStatus = &st
    }
    return nil
}

func (s *memStore) CountActiveOverlapping(ctx context.Context, t model.TrailerType, start, end, now time.Time) (int, error) {
    return s.countActiveOverlapping(t, start, end, now), nil
}

func (s *memStore) FindOverlap(ctx context.Context, t model.TrailerType, start, end time.Time) (*model.Block, error) {
    return s.findBlockOverlap(t, start, end), nil
}

func (s *memStore) countActiveOverlapping(t model.TrailerType, start, end, now time.Time) int {
    n := 0
    for _, b := range s.bookings {
        if b.TrailerType == t && b.Active(now) && model.Overlaps(b.StartAt, b.EndAt, start, end) {
            n++
        }
    }
    return n
}

func (s *memStore) findBlockOverlap(t model.TrailerType, start, end time.Time) *model.Block {
    var found *model.Block
    for _, blk := range s.blocks {
        if blk.TrailerType == t && model.Overlaps(blk.StartAt, blk.EndAt, start, end) {
            if found == nil || blk.StartAt.Before(found.StartAt) {
                found = blk
            }
        }
    }
    if found == nil {
        return nil
    }
    cp := *found
    return &cp
}

var errNotFound = &notFoundError{}

type notFoundError struct{}

func (*notFoundError) Error() string { return "booking not found" }

func fixedClock(t time.Time) func() time.Time {
    return func() time.Time { return t }
}

func newTestService(store *memStore, now time.Time) *BookingService {
    return &BookingService{
        Begin:    store.Begin,
        Ledger:   store,
        Blocks:   store,
        Calendar: pricing.SwedishCalendar{},
        Now:      fixedClock(now),
    }
}

var testNow = time.Date(2026, 7, 6, 9, 0, 0, 0, time.UTC) // a Monday

func twoHourRequest(t model.TrailerType, start time.Time) ReserveRequest {
    return ReserveRequest{TrailerType: t, RentalType: model.RentalTwoHours, StartAt: start}
}

func TestReserveCreatesPendingHold(t *testing.T) {
    store := newMemStore()
    svc := newTestService(store, testNow)

    b, err := svc.Reserve(context.Background(), ReserveRequest{
        TrailerType:      model.TrailerGaller,
        RentalType:       model.RentalTwoHours,
        StartAt:          testNow.Add(time.Hour),
        CustomerPhone:    "0701234567",
        ReceiptRequested: true,
        CustomerEmail:    "kund@example.com",
    })
    require.NoError(t, err)
    require.Equal(t, model.StatusPendingPayment, b.Status)
    require.Equal(t, pricing.TwoHourPrice, b.Price)
    require.Equal(t, testNow.Add(time.Hour), b.StartAt)
    require.Equal(t, testNow.Add(3*time.Hour), b.EndAt)
    require.NotNil(t, b.ExpiresAt)
    require.Equal(t, testNow.Add(model.PendingPaymentTTL), *b.ExpiresAt)
    require.Equal(t, model.BookingReference(testNow, b.ID), b.Reference)

    stored, err := store.GetByID(context.Background(), b.ID)
    require.NoError(t, err)
    require.Equal(t, b.Reference, stored.Reference)
    require.NotNil(t, stored.CustomerPhone)
    require.True(t, stored.ReceiptRequested)
}

func TestReserveFullDayPricing(t *testing.T) {
    store := newMemStore()
    svc := newTestService(store, testNow)

    // Friday is billed at the weekend rate.
    friday := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
    b, err := svc.Reserve(context.Background(), ReserveRequest{
        TrailerType: model.TrailerKap,
        RentalType:  model.RentalFullDay,
        StartAt:     friday,
    })
    require.NoError(t, err)
    require.Equal(t, pricing.FullDayWeekendPrice, b.Price)
    require.Equal(t, friday, b.StartAt)
    require.Equal(t, friday.Add(23*time.Hour+59*time.Minute), b.EndAt)
}

func TestReserveCapacityExhausted(t *testing.T) {
    store := newMemStore()
    svc := newTestService(store, testNow)
    ctx := context.Background()
    start := testNow.Add(time.Hour)

    _, err := svc.Reserve(ctx, twoHourRequest(model.TrailerGaller, start))
    require.NoError(t, err)
    _, err = svc.Reserve(ctx, twoHourRequest(model.TrailerGaller, start))
    require.NoError(t, err)

    _, err = svc.Reserve(ctx, twoHourRequest(model.TrailerGaller, start))
    require.ErrorIs(t, err, ErrSlotTaken)

    // The other pool is unaffected.
    _, err = svc.Reserve(ctx, twoHourRequest(model.TrailerKap, start))
    require.NoError(t, err)

    // A disjoint window on the full pool is also unaffected.
    _, err = svc.Reserve(ctx, twoHourRequest(model.TrailerGaller, start.Add(3*time.Hour)))
    require.NoError(t, err)
}

func TestReserveBlockVetoBeforeCapacity(t *testing.T) {
    store := newMemStore()
    svc := newTestService(store, testNow)
    ctx := context.Background()
    start := testNow.Add(time.Hour)

    // Fill the pool, then block the window.  The block must win the error.
    _, err := svc.Reserve(ctx, twoHourRequest(model.TrailerGaller, start))
    require.NoError(t, err)
    _, err = svc.Reserve(ctx, twoHourRequest(model.TrailerGaller, start))
    require.NoError(t, err)
    store.blocks = append(store.blocks, &model.Block{
        ID: 1, TrailerType: model.TrailerGaller,
        StartAt: start, EndAt: start.Add(2 * time.Hour), Reason: "service day",
    })

    _, err = svc.Reserve(ctx, twoHourRequest(model.TrailerGaller, start))
    var blocked *SlotBlockedError
    require.ErrorAs(t, err, &blocked)
    require.Equal(t, "service day", blocked.Block.Reason)

    // Blocks are per trailer type.
    _, err = svc.Reserve(ctx, twoHourRequest(model.TrailerKap, start))
    require.NoError(t, err)
}

func TestExpiredHoldFreesCapacity(t *testing.T) {
    store := newMemStore()
    svc := newTestService(store, testNow)
    ctx := context.Background()
    start := testNow.Add(24 * time.Hour)

    _, err := svc.Reserve(ctx, twoHourRequest(model.TrailerGaller, start))
    require.NoError(t, err)
    _, err = svc.Reserve(ctx, twoHourRequest(model.TrailerGaller, start))
    require.NoError(t, err)
    _, err = svc.Reserve(ctx, twoHourRequest(model.TrailerGaller, start))
    require.ErrorIs(t, err, ErrSlotTaken)

    // Past the payment deadline the unpaid holds stop counting, even
    // before any sweep has cancelled them.
    later := newTestService(store, testNow.Add(16*time.Minute))
    b, err := later.Reserve(ctx, twoHourRequest(model.TrailerGaller, start))
    require.NoError(t, err)
    require.Equal(t, model.StatusPendingPayment, b.Status)
}

func TestExpireDueCancelsAndClearsContact(t *testing.T) {
    store := newMemStore()
    svc := newTestService(store, testNow)
    ctx := context.Background()

    b, err := svc.Reserve(ctx, ReserveRequest{
        TrailerType:   model.TrailerGaller,
        RentalType:    model.RentalTwoHours,
        StartAt:       testNow.Add(48 * time.Hour), // future window still expires
        CustomerPhone: "0701234567",
    })
    require.NoError(t, err)

    // Not yet due.
    n, err := svc.ExpireDue(ctx)
    require.NoError(t, err)
    require.Zero(t, n)

    later := newTestService(store, testNow.Add(16*time.Minute))
    n, err = later.ExpireDue(ctx)
    require.NoError(t, err)
    require.EqualValues(t, 1, n)

    got, err := store.GetByID(ctx, b.ID)
    require.NoError(t, err)
    require.Equal(t, model.StatusCancelled, got.Status)
    require.Nil(t, got.CustomerPhone)

    // Sweep is idempotent.
    n, err = later.ExpireDue(ctx)
    require.NoError(t, err)
    require.Zero(t, n)
}

func TestMarkPaidConfirmsAndNotifies(t *testing.T) {
    store := newMemStore()
    svc := newTestService(store, testNow)
    ctx := context.Background()

    var notified int
    svc.OnConfirmed = func(ctx context.Context, b *model.Booking) { notified++ }

    b, err := svc.Reserve(ctx, twoHourRequest(model.TrailerGaller, testNow.Add(time.Hour)))
    require.NoError(t, err)

    got, err := svc.MarkPaid(ctx, b.ID, "PAID")
    require.NoError(t, err)
    require.Equal(t, model.StatusConfirmed, got.Status)
    require.Equal(t, 1, notified)

    // A repeated PAID trigger keeps the booking confirmed and re-runs the
    // notifier; per-channel send guards make the repeat harmless.
    got, err = svc.MarkPaid(ctx, b.ID, "PAID")
    require.NoError(t, err)
    require.Equal(t, model.StatusConfirmed, got.Status)
    require.Equal(t, 2, notified)
}

func TestMarkPaidAfterExpiryStaysCancelled(t *testing.T) {
    store := newMemStore()
    svc := newTestService(store, testNow)
    ctx := context.Background()

    b, err := svc.Reserve(ctx, twoHourRequest(model.TrailerGaller, testNow.Add(time.Hour)))
    require.NoError(t, err)

    later := newTestService(store, testNow.Add(20*time.Minute))
    _, err = later.ExpireDue(ctx)
    require.NoError(t, err)

    var notified int
    later.OnConfirmed = func(ctx context.Context, b *model.Booking) { notified++ }
    got, err := later.MarkPaid(ctx, b.ID, "PAID")
    require.NoError(t, err)
    require.Equal(t, model.StatusCancelled, got.Status)
    require.Zero(t, notified)
}

func TestMarkFailedCancels(t *testing.T) {
    store := newMemStore()
    svc := newTestService(store, testNow)
    ctx := context.Background()

    b, err := svc.Reserve(ctx, ReserveRequest{
        TrailerType:   model.TrailerKap,
        RentalType:    model.RentalTwoHours,
        StartAt:       testNow.Add(time.Hour),
        CustomerPhone: "0709998877",
    })
    require.NoError(t, err)

    got, err := svc.MarkFailed(ctx, b.ID, "FAILED")
    require.NoError(t, err)
    require.Equal(t, model.StatusCancelled, got.Status)
    require.Nil(t, got.CustomerPhone)
    require.NotNil(t, got.SwishStatus)
    require.Equal(t, "FAILED", *got.SwishStatus)

    // Cancelling is terminal; a late PAID must not resurrect the booking.
    got, err = svc.MarkPaid(ctx, b.ID, "PAID")
    require.NoError(t, err)
    require.Equal(t, model.StatusCancelled, got.Status)
}

func TestReserveRejectsEndedWindow(t *testing.T) {
    store := newMemStore()
    svc := newTestService(store, testNow)

    _, err := svc.Reserve(context.Background(), twoHourRequest(model.TrailerGaller, testNow.Add(-3*time.Hour)))
    var invalid *InvalidWindowError
    require.ErrorAs(t, err, &invalid)
}

func TestAvailable(t *testing.T) {
    store := newMemStore()
    svc := newTestService(store, testNow)
    ctx := context.Background()
    start := testNow.Add(time.Hour)
    end := start.Add(2 * time.Hour)

    n, err := svc.Available(ctx, model.TrailerGaller, start, end)
    require.NoError(t, err)
    require.Equal(t, 2, n)

    _, err = svc.Reserve(ctx, twoHourRequest(model.TrailerGaller, start))
    require.NoError(t, err)
    n, err = svc.Available(ctx, model.TrailerGaller, start, end)
    require.NoError(t, err)
    require.Equal(t, 1, n)

    store.blocks = append(store.blocks, &model.Block{
        ID: 1, TrailerType: model.TrailerGaller, StartAt: start, EndAt: end, Reason: "repair",
    })
    n, err = svc.Available(ctx, model.TrailerGaller, start, end)
    require.NoError(t, err)
    require.Zero(t, n)
}

func TestConcurrentReservesNeverOverbook(t *testing.T) {
    store := newMemStore()
    svc := newTestService(store, testNow)
    ctx := context.Background()
    start := testNow.Add(time.Hour)

    const attempts = 16
    errs := make(chan error, attempts)
    var wg sync.WaitGroup
    for i := 0; i < attempts; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            _, err := svc.Reserve(ctx, twoHourRequest(model.TrailerGaller, start))
            errs <- err
        }()
    }
    wg.Wait()
    close(errs)

    var ok, taken int
    for err := range errs {
        switch {
        case err == nil:
            ok++
        case err == ErrSlotTaken:
            taken++
        default:
            t.Fatalf("unexpected error: %v", err)
        }
    }
    require.Equal(t, model.PoolCapacity, ok)
    require.Equal(t, attempts-model.PoolCapacity, taken)

    n := store.countActiveOverlapping(model.TrailerGaller, start, start.Add(2*time.Hour), testNow)
    require.Equal(t, model.PoolCapacity, n)
}

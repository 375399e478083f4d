// README: Concurrency tests for on-demand admission; run with -race.
package booking

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"spotly/internal/types"
)

// Many renters race to start a session on the same spot. Exactly one wins;
// every loser sees ErrSpotOccupied.
func TestConcurrentStartSingleWinner(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, testSpot(0.5, true), nil)
	ctx := context.Background()

	const racers = 32
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Start(ctx, StartCommand{
				SpotID:      "spot-1",
				RenterID:    types.ID(string(rune('a' + n%26))),
				PlateNumber: "EL12345",
				Coordinate:  types.Point{Lat: 59.9139, Lng: 10.7522},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var wins, occupied int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSpotOccupied):
			occupied++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("got %d winners, want 1", wins)
	}
	if occupied != racers-1 {
		t.Fatalf("got %d occupied rejections, want %d", occupied, racers-1)
	}
}

// A start racing a stop on the same spot must never double-admit: after the
// session stops, at most one new session holds the spot.
func TestConcurrentStopAndRestart(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, testSpot(0.5, true), nil)
	ctx := context.Background()

	b, err := svc.Start(ctx, StartCommand{
		SpotID:      "spot-1",
		RenterID:    "renter-1",
		PlateNumber: "EL12345",
		Coordinate:  types.Point{Lat: 59.9139, Lng: 10.7522},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = svc.Stop(ctx, StopCommand{BookingID: b.ID, CallerID: "renter-1"})
	}()
	go func() {
		defer wg.Done()
		_, _ = svc.Start(ctx, StartCommand{
			SpotID:      "spot-1",
			RenterID:    "renter-2",
			PlateNumber: "EL67890",
			Coordinate:  types.Point{Lat: 59.9139, Lng: 10.7522},
		})
	}()
	wg.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	active := 0
	for _, bk := range store.bookings {
		if bk.SpotID == "spot-1" && bk.Type == TypeOnDemand && bk.Status == StatusStarted {
			active++
		}
	}
	if active > 1 {
		t.Fatalf("got %d active sessions on one spot", active)
	}
}

// Same race against a real database: the partial unique index decides the
// winner. Needs SPOTLY_TEST_DSN pointing at a migrated database.
func TestConcurrentStartAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("SPOTLY_TEST_DSN")
	if dsn == "" {
		t.Skip("SPOTLY_TEST_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	spotID := seedSpot(t, pool)
	store := NewStore(pool)

	const racers = 16
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			now := time.Now()
			errs <- store.CreateStarted(ctx, &Booking{
				ID:          types.ID(uuid.NewString()),
				SpotID:      spotID,
				RenterID:    "renter-1",
				Type:        TypeOnDemand,
				Status:      StatusStarted,
				ActualStart: &now,
				PlateNumber: "EL12345",
				CreatedAt:   now,
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	var wins, occupied int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSpotOccupied):
			occupied++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || occupied != racers-1 {
		t.Fatalf("got %d winners and %d rejections", wins, occupied)
	}
}

func seedSpot(t *testing.T, pool *pgxpool.Pool) types.ID {
	t.Helper()
	id := uuid.NewString()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO spots (id, owner_id, address, lat, lng, geofence_radius_m,
			price_per_minute, on_demand_enabled, created_at)
		VALUES ($1, 'owner-test', 'Testgata 1', 59.9139, 10.7522, 50, 0.5, TRUE, NOW())`,
		id,
	)
	if err != nil {
		t.Fatalf("seed spot: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM booking_state_events WHERE booking_id IN (SELECT id FROM bookings WHERE spot_id = $1)`, id)
		_, _ = pool.Exec(context.Background(), `DELETE FROM payments WHERE booking_id IN (SELECT id FROM bookings WHERE spot_id = $1)`, id)
		_, _ = pool.Exec(context.Background(), `DELETE FROM bookings WHERE spot_id = $1`, id)
		_, _ = pool.Exec(context.Background(), `DELETE FROM spots WHERE id = $1`, id)
	})
	return types.ID(id)
}

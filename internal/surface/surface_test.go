package surface

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/evanschultz/lapse/internal/app"
	"github.com/evanschultz/lapse/internal/domain"
)

type moveCall struct {
	id string
	p  domain.Point
}

type fakeStore struct {
	activities []domain.Activity
	moves      []moveCall
	resets     []string
	spawn      app.SpawnFunc
	moveErr    error
}

func (f *fakeStore) add(id, category string, pos domain.Point, size float64) {
	f.activities = append(f.activities, domain.Activity{ID: id, Category: category, Title: id, Position: pos, Size: size})
}

func (f *fakeStore) Get(id string) (domain.Activity, bool) {
	for _, a := range f.activities {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Activity{}, false
}

func (f *fakeStore) List() []domain.Activity {
	return append([]domain.Activity(nil), f.activities...)
}

func (f *fakeStore) ListByCategory(category string) []domain.Activity {
	var out []domain.Activity
	for _, a := range f.activities {
		if a.Category == category {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeStore) Move(_ context.Context, id string, p domain.Point) error {
	f.moves = append(f.moves, moveCall{id: id, p: p})
	if f.moveErr != nil {
		return f.moveErr
	}
	for i := range f.activities {
		if f.activities[i].ID == id {
			f.activities[i].Position = p
		}
	}
	return nil
}

func (f *fakeStore) ResetTimer(_ context.Context, id string) error {
	f.resets = append(f.resets, id)
	for i := range f.activities {
		if f.activities[i].ID == id {
			f.activities[i].LastResetAt = f.activities[i].LastResetAt.Add(time.Second)
		}
	}
	return nil
}

func (f *fakeStore) SetSpawn(fn app.SpawnFunc) {
	f.spawn = fn
}

func newMeasuredTracker(w, h float64) *BoundsTracker {
	t := NewBoundsTracker()
	t.Observe(domain.Bounds{Width: w, Height: h})
	return t
}

func TestGestureTapResetsWithoutMoving(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	store.add("a1", "friends", domain.Point{X: 10, Y: 10}, 12)
	g := NewGestureController("a1", store, newMeasuredTracker(100, 60), 0)

	if !g.PointerDown(1, domain.Point{X: 15, Y: 15}) {
		t.Fatal("expected tracking to start")
	}
	if err := g.PointerMove(ctx, 1, domain.Point{X: 15, Y: 15}); err != nil {
		t.Fatalf("PointerMove() error = %v", err)
	}
	outcome, err := g.PointerUp(ctx, 1)
	if err != nil {
		t.Fatalf("PointerUp() error = %v", err)
	}
	if outcome != OutcomeTappedReset {
		t.Fatalf("expected tap, got %v", outcome)
	}
	if len(store.resets) != 1 {
		t.Fatalf("expected one reset, got %v", store.resets)
	}
	if a, _ := store.Get("a1"); a.Position != (domain.Point{X: 10, Y: 10}) {
		t.Fatalf("expected position unchanged, got %#v", a.Position)
	}
	if g.Phase() != PhaseIdle {
		t.Fatalf("expected idle, got %v", g.Phase())
	}
}

func TestGestureJitterBelowThresholdStillTaps(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	store.add("a1", "friends", domain.Point{X: 10, Y: 10}, 12)
	g := NewGestureController("a1", store, newMeasuredTracker(100, 60), 4)

	g.PointerDown(1, domain.Point{X: 15, Y: 15})
	_ = g.PointerMove(ctx, 1, domain.Point{X: 17, Y: 17})
	_ = g.PointerMove(ctx, 1, domain.Point{X: 15, Y: 15})
	outcome, _ := g.PointerUp(ctx, 1)
	if outcome != OutcomeTappedReset || len(store.resets) != 1 {
		t.Fatalf("expected tap after jitter, got %v resets=%v", outcome, store.resets)
	}
}

func TestGestureDragCommitsClampedPosition(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	store.add("a1", "friends", domain.Point{X: 10, Y: 10}, 12)
	g := NewGestureController("a1", store, newMeasuredTracker(100, 60), 4)

	g.PointerDown(1, domain.Point{X: 12, Y: 12})
	if err := g.PointerMove(ctx, 1, domain.Point{X: 20, Y: 18}); err != nil {
		t.Fatalf("PointerMove() error = %v", err)
	}
	if !g.Moved() {
		t.Fatal("expected drag after crossing threshold")
	}
	// Far past the right/bottom edge: clamps to (88, 48).
	if err := g.PointerMove(ctx, 1, domain.Point{X: 500, Y: 500}); err != nil {
		t.Fatalf("PointerMove() error = %v", err)
	}
	outcome, err := g.PointerUp(ctx, 1)
	if err != nil {
		t.Fatalf("PointerUp() error = %v", err)
	}
	if outcome != OutcomeDragged {
		t.Fatalf("expected drag, got %v", outcome)
	}
	if len(store.resets) != 0 {
		t.Fatalf("expected no reset, got %v", store.resets)
	}
	if len(store.moves) == 0 {
		t.Fatal("expected move calls")
	}
	if last := store.moves[len(store.moves)-1].p; last != (domain.Point{X: 88, Y: 48}) {
		t.Fatalf("unexpected final position %#v", last)
	}
	if store.moves[0].p != (domain.Point{X: 18, Y: 16}) {
		t.Fatalf("unexpected first position %#v", store.moves[0].p)
	}
}

func TestGestureDragAgainstEdgeStillForwardsMoves(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	store.add("a1", "friends", domain.Point{}, 12)
	g := NewGestureController("a1", store, newMeasuredTracker(100, 60), 4)

	g.PointerDown(1, domain.Point{X: 5, Y: 5})
	if err := g.PointerMove(ctx, 1, domain.Point{X: -20, Y: -20}); err != nil {
		t.Fatalf("PointerMove() error = %v", err)
	}
	outcome, err := g.PointerUp(ctx, 1)
	if err != nil || outcome != OutcomeDragged {
		t.Fatalf("PointerUp() = %v, %v", outcome, err)
	}
	if len(store.resets) != 0 {
		t.Fatalf("expected no reset, got %v", store.resets)
	}
	if len(store.moves) != 1 || store.moves[0].p != (domain.Point{}) {
		t.Fatalf("expected one clamped move to the origin, got %v", store.moves)
	}
}

func TestGestureFollowsStorePositionAfterNudge(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	store.add("a1", "friends", domain.Point{X: 10, Y: 10}, 12)
	g := NewGestureController("a1", store, newMeasuredTracker(100, 60), 4)

	g.PointerDown(1, domain.Point{X: 12, Y: 12})
	_ = g.PointerMove(ctx, 1, domain.Point{X: 32, Y: 12})
	// Someone else moves the bubble mid-drag; the next event puts it back.
	_ = store.Move(ctx, "a1", domain.Point{X: 0, Y: 0})
	_ = g.PointerMove(ctx, 1, domain.Point{X: 32, Y: 12})
	if a, _ := store.Get("a1"); a.Position != (domain.Point{X: 30, Y: 10}) {
		t.Fatalf("expected drag to re-commit its position, got %#v", a.Position)
	}
}

func TestGestureDragBackToStartStaysDrag(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	store.add("a1", "friends", domain.Point{X: 10, Y: 10}, 12)
	g := NewGestureController("a1", store, newMeasuredTracker(100, 60), 4)

	g.PointerDown(1, domain.Point{X: 12, Y: 12})
	_ = g.PointerMove(ctx, 1, domain.Point{X: 30, Y: 12})
	_ = g.PointerMove(ctx, 1, domain.Point{X: 12, Y: 12})
	outcome, _ := g.PointerUp(ctx, 1)
	if outcome != OutcomeDragged || len(store.resets) != 0 {
		t.Fatalf("expected moved flag to stick, got %v resets=%v", outcome, store.resets)
	}
}

func TestGestureIgnoresSecondPointer(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	store.add("a1", "friends", domain.Point{X: 10, Y: 10}, 12)
	g := NewGestureController("a1", store, newMeasuredTracker(100, 60), 4)

	g.PointerDown(1, domain.Point{X: 12, Y: 12})
	if g.PointerDown(2, domain.Point{X: 50, Y: 50}) {
		t.Fatal("expected second pointer down to be ignored")
	}
	_ = g.PointerMove(ctx, 2, domain.Point{X: 60, Y: 60})
	if outcome, _ := g.PointerUp(ctx, 2); outcome != OutcomeNone {
		t.Fatalf("expected foreign release ignored, got %v", outcome)
	}
	if len(store.moves) != 0 || g.Phase() != PhaseTracking {
		t.Fatalf("expected first gesture intact, moves=%v phase=%v", store.moves, g.Phase())
	}
	if outcome, _ := g.PointerUp(ctx, 1); outcome != OutcomeTappedReset {
		t.Fatalf("expected original pointer to finish the tap, got %v", outcome)
	}
}

func TestGestureCancelDiscardsLaterMoves(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	store.add("a1", "friends", domain.Point{X: 10, Y: 10}, 12)
	g := NewGestureController("a1", store, newMeasuredTracker(100, 60), 4)

	g.PointerDown(1, domain.Point{X: 12, Y: 12})
	_ = g.PointerMove(ctx, 1, domain.Point{X: 30, Y: 12})
	if outcome, _ := g.PointerCancel(ctx, 1); outcome != OutcomeDragged {
		t.Fatalf("expected dragged cancel, got %v", outcome)
	}
	moves := len(store.moves)
	_ = g.PointerMove(ctx, 1, domain.Point{X: 40, Y: 12})
	if len(store.moves) != moves {
		t.Fatal("expected moves after cancel to be dropped")
	}
}

func TestGestureUsesBoundsAtEachMove(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	store.add("a1", "friends", domain.Point{X: 0, Y: 0}, 12)
	tracker := newMeasuredTracker(100, 60)
	g := NewGestureController("a1", store, tracker, 4)

	g.PointerDown(1, domain.Point{X: 1, Y: 1})
	_ = g.PointerMove(ctx, 1, domain.Point{X: 71, Y: 1})
	tracker.Observe(domain.Bounds{Width: 50, Height: 60})
	_ = g.PointerMove(ctx, 1, domain.Point{X: 72, Y: 1})
	if last := store.moves[len(store.moves)-1].p; last != (domain.Point{X: 38, Y: 0}) {
		t.Fatalf("expected clamp against resized bounds, got %#v", last)
	}
}

func TestBoundsTrackerNotifiesOnChange(t *testing.T) {
	tracker := NewBoundsTracker()
	if _, ok := tracker.Current(); ok {
		t.Fatal("expected unmeasured tracker")
	}
	var seen []domain.Bounds
	unsubscribe := tracker.Subscribe(func(b domain.Bounds) { seen = append(seen, b) })

	tracker.Observe(domain.Bounds{Width: 80, Height: 40})
	tracker.Observe(domain.Bounds{Width: 80, Height: 40})
	tracker.Observe(domain.Bounds{Width: -3, Height: 40})
	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications, got %v", seen)
	}
	if seen[1] != (domain.Bounds{Width: 0, Height: 40}) {
		t.Fatalf("expected negative width clamped, got %#v", seen[1])
	}

	unsubscribe()
	unsubscribe()
	tracker.Observe(domain.Bounds{Width: 10, Height: 10})
	if len(seen) != 2 || tracker.Subscribers() != 0 {
		t.Fatalf("expected no notification after unsubscribe, got %v", seen)
	}

	var late []domain.Bounds
	tracker.Subscribe(func(b domain.Bounds) { late = append(late, b) })
	if len(late) != 1 || late[0] != (domain.Bounds{Width: 10, Height: 10}) {
		t.Fatalf("expected late subscriber to receive current bounds, got %v", late)
	}
}

func TestRepositionPolicyOnlyMovesOutOfRange(t *testing.T) {
	store := &fakeStore{}
	store.add("in", "friends", domain.Point{X: 5, Y: 5}, 12)
	store.add("out", "friends", domain.Point{X: 90, Y: 50}, 12)
	policy := NewRepositionPolicy(store)

	moved, err := policy.Apply(context.Background(), domain.Bounds{Width: 60, Height: 30})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if moved != 1 || len(store.moves) != 1 {
		t.Fatalf("expected one move, got %d %v", moved, store.moves)
	}
	if store.moves[0] != (moveCall{id: "out", p: domain.Point{X: 48, Y: 18}}) {
		t.Fatalf("unexpected move %#v", store.moves[0])
	}
}

func TestRepositionPolicyCollectsErrors(t *testing.T) {
	store := &fakeStore{moveErr: errors.New("disk full")}
	store.add("a", "friends", domain.Point{X: 90, Y: 0}, 12)
	store.add("b", "friends", domain.Point{X: 95, Y: 0}, 12)
	moved, err := NewRepositionPolicy(store).Apply(context.Background(), domain.Bounds{Width: 20, Height: 20})
	if err == nil || moved != 2 || len(store.moves) != 2 {
		t.Fatalf("expected both moves attempted and error returned, got moved=%d err=%v", moved, err)
	}
}

func TestRepositionKeepsEveryActivityInBounds(t *testing.T) {
	store := &fakeStore{}
	rng := rand.New(rand.NewPCG(1, 2))
	for i := range 25 {
		size := float64(4 + rng.IntN(20))
		store.add(string(rune('a'+i)), "friends", domain.Point{X: rng.Float64() * 200, Y: rng.Float64() * 120}, size)
	}
	s := New(context.Background(), store, Config{})
	t.Cleanup(s.Close)

	for range 40 {
		b := domain.Bounds{Width: float64(rng.IntN(160)), Height: float64(rng.IntN(100))}
		s.Resize(b)
		for _, a := range store.List() {
			maxX, maxY := max(0, b.Width-a.Size), max(0, b.Height-a.Size)
			if a.Position.X < 0 || a.Position.X > maxX || a.Position.Y < 0 || a.Position.Y > maxY {
				t.Fatalf("activity %s at %#v out of bounds %#v (size %v)", a.ID, a.Position, b, a.Size)
			}
		}
	}
}

func TestPulseArmsOnlyOnNewReset(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	p := NewPulse(0)
	list := []domain.Activity{{ID: "a1", LastResetAt: now}}
	if armed := p.Observe(list, now); len(armed) != 0 {
		t.Fatalf("expected first sighting not to pulse, got %v", armed)
	}
	if armed := p.Observe(list, now); len(armed) != 0 {
		t.Fatalf("expected unchanged reset not to pulse, got %v", armed)
	}
	list[0].LastResetAt = now.Add(time.Minute)
	if armed := p.Observe(list, now); len(armed) != 1 {
		t.Fatalf("expected new reset to pulse, got %v", armed)
	}
	if !p.Active("a1", now.Add(400*time.Millisecond)) {
		t.Fatal("expected pulse active inside the window")
	}
	if p.Active("a1", now.Add(DefaultPulseDuration)) {
		t.Fatal("expected pulse over at the duration")
	}
	if p.Expire(now.Add(time.Second)) {
		t.Fatal("expected no pulses left")
	}
}

func TestSpawnPolicies(t *testing.T) {
	if _, err := ParseSpawnPolicy("corner"); err == nil {
		t.Fatal("expected unknown policy to fail")
	}
	policy, err := ParseSpawnPolicy(" Center ")
	if err != nil || policy != SpawnCenter {
		t.Fatalf("ParseSpawnPolicy() = %v, %v", policy, err)
	}
	tracker := NewBoundsTracker()
	spawn := policy.SpawnFunc(tracker)
	if got := spawn(12); got != (domain.Point{}) {
		t.Fatalf("expected origin before measurement, got %#v", got)
	}
	tracker.Observe(domain.Bounds{Width: 100, Height: 40})
	if got := spawn(12); got != (domain.Point{X: 44, Y: 14}) {
		t.Fatalf("unexpected center spawn %#v", got)
	}
	if got := SpawnOrigin.SpawnFunc(tracker)(12); got != (domain.Point{}) {
		t.Fatalf("expected origin spawn, got %#v", got)
	}
}

func TestSurfaceRoutesPointerAndHitTests(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	store.add("back", "friends", domain.Point{X: 0, Y: 0}, 12)
	store.add("front", "friends", domain.Point{X: 6, Y: 0}, 12)
	store.add("other", "family", domain.Point{X: 6, Y: 0}, 12)
	s := New(ctx, store, Config{Spawn: SpawnCenter})
	s.Resize(domain.Bounds{Width: 100, Height: 60})

	id, ok := s.HitTest("friends", domain.Point{X: 8, Y: 2})
	if !ok || id != "front" {
		t.Fatalf("expected topmost bubble, got %q %v", id, ok)
	}
	if _, ok := s.HitTest("friends", domain.Point{X: 50, Y: 50}); ok {
		t.Fatal("expected miss on empty space")
	}

	if !s.PointerDown(id, 1, domain.Point{X: 8, Y: 2}) {
		t.Fatal("expected gesture start")
	}
	if s.PointerDown("back", 1, domain.Point{X: 1, Y: 1}) {
		t.Fatal("expected busy pointer to be rejected")
	}
	_ = s.PointerMove(ctx, 1, domain.Point{X: 28, Y: 2})
	gotID, outcome, err := s.PointerUp(ctx, 1)
	if err != nil || gotID != "front" || outcome != OutcomeDragged {
		t.Fatalf("PointerUp() = %q %v %v", gotID, outcome, err)
	}
	if a, _ := store.Get("front"); a.Position != (domain.Point{X: 26, Y: 0}) {
		t.Fatalf("unexpected dragged position %#v", a.Position)
	}

	if store.spawn == nil || store.spawn(12) != (domain.Point{X: 44, Y: 24}) {
		t.Fatal("expected center spawn wired into the store")
	}
	s.Close()
	s.Close()
	if store.spawn != nil {
		t.Fatal("expected Close to clear the spawn policy")
	}
	if s.Tracker().Subscribers() != 0 {
		t.Fatal("expected Close to detach the reposition policy")
	}
}

func TestSurfaceNudgeAndPulse(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	store.add("a1", "friends", domain.Point{X: 0, Y: 0}, 12)
	s := New(ctx, store, Config{})
	t.Cleanup(s.Close)
	s.Resize(domain.Bounds{Width: 20, Height: 20})

	_ = s.Nudge(ctx, "a1", domain.Point{X: -1})
	if len(store.moves) != 0 {
		t.Fatal("expected nudge against the edge to be a no-op")
	}
	_ = s.Nudge(ctx, "a1", domain.Point{X: 50, Y: 2})
	if a, _ := store.Get("a1"); a.Position != (domain.Point{X: 8, Y: 2}) {
		t.Fatalf("unexpected nudged position %#v", a.Position)
	}

	now := time.Now()
	if armed := s.ObservePulses(now); len(armed) != 0 {
		t.Fatalf("expected no pulse before reset, got %v", armed)
	}
	if err := s.Tap(ctx, "a1"); err != nil {
		t.Fatalf("Tap() error = %v", err)
	}
	if armed := s.ObservePulses(now); len(armed) != 1 || !s.Pulsing("a1", now) {
		t.Fatalf("expected pulse after reset, got %v", armed)
	}
	if s.ExpirePulses(now.Add(s.PulseDuration())) {
		t.Fatal("expected pulse expired")
	}
}

func TestSurfaceTrackingPicksLowestID(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	for _, id := range []string{"c3", "a1", "b2"} {
		store.add(id, "friends", domain.Point{X: 10, Y: 10}, 12)
	}
	s := New(ctx, store, Config{})
	defer s.Close()

	s.PointerDown("c3", 3, domain.Point{X: 12, Y: 12})
	s.PointerDown("b2", 2, domain.Point{X: 12, Y: 12})
	s.PointerDown("a1", 1, domain.Point{X: 12, Y: 12})
	for range 20 {
		if id, ok := s.Tracking(); !ok || id != "a1" {
			t.Fatalf("Tracking() = %q, %v, want a1", id, ok)
		}
	}
	if _, _, err := s.PointerUp(ctx, 1); err != nil {
		t.Fatalf("PointerUp() error = %v", err)
	}
	if id, ok := s.Tracking(); !ok || id != "b2" {
		t.Fatalf("Tracking() after release = %q, %v, want b2", id, ok)
	}
}

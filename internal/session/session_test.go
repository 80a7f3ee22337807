package session

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hanbyeol/lyrico/internal/mission"
	playermock "github.com/hanbyeol/lyrico/internal/player/mock"
	syncengine "github.com/hanbyeol/lyrico/internal/sync"
	"github.com/hanbyeol/lyrico/pkg/lyrics"
)

func testMission() *lyrics.Mission {
	return &lyrics.Mission{
		ID:    "m1",
		Title: "Queencard",
		Lines: []lyrics.Line{
			{Timestamp: "[00:00.00]", Content: "intro"},
			{Timestamp: "[00:05.00]", Content: "I am a Queencard"},
			{Timestamp: "[00:10.00]", Content: "outro"},
		},
		Keywords: []lyrics.Keyword{{Word: "Queencard", Definition: "the confident one"}},
		Offset:   0,
	}
}

// newTestSession creates a started session over a mem store with a fast
// tick and an attached mock player.
func newTestSession(t *testing.T, m *lyrics.Mission) (*Session, *playermock.Player, *mission.MemStore) {
	t.Helper()

	store := mission.NewMemStore()
	if err := store.PutMission(context.Background(), m); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	s, err := New(Config{
		Mission:      m,
		Store:        store,
		TickInterval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Stop)

	p := &playermock.Player{}
	s.AttachPlayer(p)
	return s, p, store
}

// waitForActive polls the session state until the active index matches want.
func waitForActive(t *testing.T, s *Session, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State().ActiveIndex == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("active index never reached %d (at %d)", want, s.State().ActiveIndex)
}

func TestSession_TickTracksPlayback(t *testing.T) {
	s, p, _ := newTestSession(t, testMission())
	s.Start()

	p.SetTime(6)
	waitForActive(t, s, 1)

	p.SetTime(11)
	waitForActive(t, s, 2)
}

func TestSession_OffsetShiftsActiveLine(t *testing.T) {
	s, p, _ := newTestSession(t, testMission())
	s.Start()

	p.SetTime(4)
	waitForActive(t, s, 0)

	// +2 steps = +1.0s; adjusted time 5.0 reaches line 1.
	if got := s.AdjustOffset(2); got != 1.0 {
		t.Fatalf("AdjustOffset = %v, want 1.0", got)
	}
	waitForActive(t, s, 1)
}

func TestSession_SaveOffset(t *testing.T) {
	s, _, store := newTestSession(t, testMission())

	s.AdjustOffset(-3) // -1.5s
	if err := s.SaveOffset(context.Background()); err != nil {
		t.Fatalf("save offset: %v", err)
	}

	m, _ := store.GetMission(context.Background(), "m1")
	if m.Offset != -1.5 {
		t.Errorf("stored offset = %v, want -1.5", m.Offset)
	}
}

func TestSession_ClickLineSeeks(t *testing.T) {
	s, p, _ := newTestSession(t, testMission())

	s.AdjustOffset(6) // +3s
	s.ClickLine(2)    // line at 10s lyric time → media 7s

	if len(p.SeekCalls) != 1 {
		t.Fatalf("seek calls = %d, want 1", len(p.SeekCalls))
	}
	if got := p.SeekCalls[0]; got.Seconds != 7 || !got.Resume {
		t.Errorf("seek = %+v, want resume at 7", got)
	}
}

func TestSession_ClickLineWithoutPlayer(t *testing.T) {
	s, _, _ := newTestSession(t, testMission())
	s.AttachPlayer(nil)

	// Must be a silent no-op, not a panic.
	s.ClickLine(1)
}

func TestSession_ActivateKeyword(t *testing.T) {
	var selected []lyrics.Keyword
	store := mission.NewMemStore()
	m := testMission()
	_ = store.PutMission(context.Background(), m)

	s, err := New(Config{
		Mission:           m,
		Store:             store,
		OnKeywordSelected: func(kw lyrics.Keyword) { selected = append(selected, kw) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Stop)

	p := &playermock.Player{IsPlaying: true}
	s.AttachPlayer(p)

	if !s.ActivateKeyword("queencard") {
		t.Fatal("known keyword not activated")
	}
	if p.CallCountPause != 1 {
		t.Errorf("pause count = %d, want 1", p.CallCountPause)
	}
	if len(selected) != 1 || selected[0].Definition != "the confident one" {
		t.Errorf("selected = %+v", selected)
	}

	if s.ActivateKeyword("nonsense") {
		t.Error("unknown word reported as activated")
	}
}

func TestSession_ProducerMutualExclusion(t *testing.T) {
	s, p, store := newTestSession(t, testMission())

	if st := s.State(); !st.OffsetControlsEnabled {
		t.Fatal("offset controls disabled before producer mode")
	}

	s.EnterProducer()

	st := s.State()
	if st.Mode != ModeProducer {
		t.Errorf("mode = %q, want producer", st.Mode)
	}
	if st.OffsetControlsEnabled {
		t.Error("offset controls enabled during producer mode")
	}

	// Offset adjustment is inert while recording.
	if got := s.AdjustOffset(4); got != 0 {
		t.Errorf("offset moved during producer mode: %v", got)
	}
	// Line clicks are inert while recording.
	seeksBefore := len(p.SeekCalls)
	s.ClickLine(1)
	if len(p.SeekCalls) != seeksBefore {
		t.Error("line click seeked during producer mode")
	}

	// Record all three lines and commit.
	for _, at := range []float64{1, 4, 9.5} {
		p.SetTime(at)
		s.ProducerHit()
	}
	if err := s.ProducerCommit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}

	st = s.State()
	if st.Mode != ModePlayback || !st.OffsetControlsEnabled {
		t.Errorf("controls not restored after commit: %+v", st)
	}

	// The re-timed lines are both adopted and persisted.
	if got := s.Lines()[1].Timestamp; got != "[00:04.00]" {
		t.Errorf("session line 1 = %q, want [00:04.00]", got)
	}
	stored, _ := store.GetMission(context.Background(), "m1")
	if stored.Lines[2].Timestamp != "[00:09.50]" {
		t.Errorf("stored line 2 = %q, want [00:09.50]", stored.Lines[2].Timestamp)
	}
}

func TestSession_ProducerCancelRestoresControls(t *testing.T) {
	s, p, store := newTestSession(t, testMission())

	s.EnterProducer()
	p.SetTime(2)
	s.ProducerHit()
	s.ProducerCancel()

	if st := s.State(); st.Mode != ModePlayback || !st.OffsetControlsEnabled {
		t.Errorf("controls not restored after cancel: %+v", st)
	}

	// Nothing persisted, original lines intact.
	stored, _ := store.GetMission(context.Background(), "m1")
	if stored.Lines[0].Timestamp != "[00:00.00]" {
		t.Errorf("lines changed by cancelled session: %+v", stored.Lines)
	}
}

func TestSession_StateJSONKeepsZeroProducerCursor(t *testing.T) {
	s, _, _ := newTestSession(t, testMission())
	s.EnterProducer()

	st := s.State()
	if st.ProducerCursor != 0 {
		t.Fatalf("cursor = %d immediately after entering, want 0", st.ProducerCursor)
	}
	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	if !strings.Contains(string(data), `"producer_cursor":0`) {
		t.Errorf("state JSON dropped the cursor at zero: %s", data)
	}
}

func TestSession_DetachPlayerIdentity(t *testing.T) {
	s, old, _ := newTestSession(t, testMission())

	// A reconnect attaches a replacement before the old handle detaches.
	replacement := &playermock.Player{}
	s.AttachPlayer(replacement)

	if s.DetachPlayer(old) {
		t.Error("stale handle reported a successful detach")
	}

	// The replacement must still be wired: a line click reaches it.
	s.ClickLine(1)
	if len(replacement.SeekCalls) != 1 {
		t.Fatalf("replacement seek calls = %d, want 1", len(replacement.SeekCalls))
	}
	if len(old.SeekCalls) != 0 {
		t.Errorf("stale player received %d seeks", len(old.SeekCalls))
	}

	// Detaching the current player does clear it.
	if !s.DetachPlayer(replacement) {
		t.Error("current handle failed to detach")
	}
	s.ClickLine(2)
	if len(replacement.SeekCalls) != 1 {
		t.Errorf("detached player still receiving seeks: %d", len(replacement.SeekCalls))
	}
}

func TestSession_TokenizeLine(t *testing.T) {
	s, _, _ := newTestSession(t, testMission())

	tokens := s.TokenizeLine(1)
	var kwCount int
	for _, tok := range tokens {
		if tok.IsKeyword() {
			kwCount++
		}
	}
	if kwCount != 1 {
		t.Errorf("keyword spans = %d, want 1", kwCount)
	}

	if s.TokenizeLine(99) != nil {
		t.Error("out-of-range index returned tokens")
	}
}

func TestSession_InitialStateBeforeFirstTick(t *testing.T) {
	s, _, _ := newTestSession(t, testMission())

	if got := s.State().ActiveIndex; got != syncengine.NoActiveLine {
		t.Errorf("initial active index = %d, want none", got)
	}
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	store := mission.NewMemStore()
	_ = store.PutMission(ctx, testMission())

	mgr, err := NewManager(ManagerConfig{Store: store, TickInterval: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(mgr.Shutdown)

	s1, err := mgr.Open(ctx, "m1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s2, err := mgr.Open(ctx, "m1")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if s1 != s2 {
		t.Error("second Open created a new session for the same mission")
	}

	if _, err := mgr.Open(ctx, "missing"); err == nil {
		t.Error("Open of unknown mission succeeded")
	}

	mgr.Close("m1")
	if mgr.Get("m1") != nil {
		t.Error("session still registered after Close")
	}
}

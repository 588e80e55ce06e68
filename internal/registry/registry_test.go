package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/JonathanSaleh123/boss-hunter/internal/game"
	"github.com/JonathanSaleh123/boss-hunter/internal/session"
)

type nopPublisher struct{}

func (nopPublisher) PublishRoom(string, session.ServerMessage) {}
func (nopPublisher) PublishConn(string, session.ServerMessage) {}

func testTemplate() session.Config {
	return session.Config{
		Boss:       game.BossTemplate{Name: "Gravemaw", MaxHealth: 1000, Attack: 50, Defense: 10},
		RoundTimer: time.Hour,
		Seed:       1,
	}
}

func testProfile(name string) game.CharacterProfile {
	return game.CharacterProfile{
		Name: name,
		GameStats: game.GameStats{
			BaseStats: game.BaseStats{
				General: game.GeneralStats{MaxHealth: 100, Attack: 10, Defense: 5},
			},
		},
	}
}

func TestGetOrCreateIsStablePerRoom(t *testing.T) {
	r := New(testTemplate(), nopPublisher{}, nil)
	defer r.StopAll()

	a := r.GetOrCreate("alpha")
	b := r.GetOrCreate("alpha")
	if a != b {
		t.Fatal("same room id produced two sessions")
	}
	if c := r.GetOrCreate("beta"); c == a {
		t.Fatal("different room ids shared a session")
	}
}

func TestConcurrentCreationSharesOneSession(t *testing.T) {
	r := New(testTemplate(), nopPublisher{}, nil)
	defer r.StopAll()

	const n = 16
	results := make([]*session.Session, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.GetOrCreate("shared")
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d got a different session", i)
		}
	}
}

func TestEmptyRoomIsRemovedAndRecreatable(t *testing.T) {
	r := New(testTemplate(), nopPublisher{}, nil)
	defer r.StopAll()

	s := r.GetOrCreate("solo")
	if err := s.Join("c1", testProfile("Ash")); err != nil {
		t.Fatalf("join: %v", err)
	}
	s.Leave("c1")

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := r.Get("solo"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("empty room was never removed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	fresh := r.GetOrCreate("solo")
	if fresh == s || fresh.Closed() {
		t.Fatal("recreated room is not a fresh session")
	}
	if err := fresh.Join("c2", testProfile("Brona")); err != nil {
		t.Fatalf("join after recreation: %v", err)
	}
}

func TestRejectedOnlyJoinDoesNotLeakRoom(t *testing.T) {
	r := New(testTemplate(), nopPublisher{}, nil)
	defer r.StopAll()

	s := r.GetOrCreate("ghost")
	if err := s.Join("c1", game.CharacterProfile{}); err == nil {
		t.Fatal("expected join with empty profile to be rejected")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := r.Get("ghost"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("room whose only join was rejected is still registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !s.Closed() {
		t.Fatal("session survived with an empty roster")
	}
}

func TestListReportsLiveRooms(t *testing.T) {
	r := New(testTemplate(), nopPublisher{}, nil)
	defer r.StopAll()

	r.GetOrCreate("one")
	r.GetOrCreate("two")
	infos := r.List()
	if len(infos) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(infos))
	}
	seen := map[string]bool{}
	for _, info := range infos {
		seen[info.RoomID] = true
		if info.BossName != "Gravemaw" || info.BossMaxHealth != 1000 {
			t.Fatalf("unexpected room info: %+v", info)
		}
	}
	if !seen["one"] || !seen["two"] {
		t.Fatalf("missing rooms in list: %v", seen)
	}
}

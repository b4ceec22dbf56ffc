package engine

import "testing"

func TestAddPlayerLobbyOnly(t *testing.T) {
	g := NewGame("s", 7, Options{Lives: 5})
	if err := g.AddPlayer("a", "Alice"); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if err := g.AddPlayer("b", "Bob"); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if got := len(g.Players); got != 2 {
		t.Fatalf("players = %d, want 2", got)
	}
	if g.Players[0].Lives != 5 {
		t.Errorf("starting lives = %d, want 5", g.Players[0].Lives)
	}

	if err := g.StartGame("a"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	err := g.AddPlayer("c", "Carol")
	if KindOf(err) != KindGameInProgress {
		t.Errorf("joining mid-game: kind = %v, want %v", KindOf(err), KindGameInProgress)
	}
}

func TestAddPlayerRejoinKeepsSeat(t *testing.T) {
	g := NewGame("s", 7, Options{})
	g.AddPlayer("a", "Alice")
	g.AddPlayer("b", "Bob")
	if err := g.AddPlayer("a", "Alicia"); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if len(g.Players) != 2 {
		t.Fatalf("rejoin duplicated seat: %d players", len(g.Players))
	}
	if g.Players[0].Name != "Alicia" {
		t.Errorf("rejoin did not refresh name: %q", g.Players[0].Name)
	}
}

func TestAddPlayerTableFull(t *testing.T) {
	g := NewGame("s", 7, Options{})
	for i := 0; i < MaxPlayers; i++ {
		if err := g.AddPlayer(string(rune('a'+i)), "P"); err != nil {
			t.Fatalf("seat %d: %v", i, err)
		}
	}
	err := g.AddPlayer("z", "Overflow")
	if KindOf(err) != KindGameFull {
		t.Errorf("kind = %v, want %v", KindOf(err), KindGameFull)
	}
}

func TestRemovePlayer(t *testing.T) {
	g := NewGame("s", 7, Options{})
	g.AddPlayer("a", "Alice")
	g.AddPlayer("b", "Bob")
	if err := g.RemovePlayer("b"); err != nil {
		t.Fatalf("RemovePlayer: %v", err)
	}
	if len(g.Players) != 1 {
		t.Fatalf("players = %d, want 1", len(g.Players))
	}
	if err := g.RemovePlayer("b"); KindOf(err) != KindUnknownPlayer {
		t.Errorf("kind = %v, want %v", KindOf(err), KindUnknownPlayer)
	}
}

func TestStartGameRequirements(t *testing.T) {
	g := NewGame("s", 7, Options{})
	g.AddPlayer("a", "Alice")

	if err := g.StartGame("a"); KindOf(err) != KindNotEnoughPlayers {
		t.Errorf("solo start: kind = %v, want %v", KindOf(err), KindNotEnoughPlayers)
	}

	g.AddPlayer("b", "Bob")
	if err := g.StartGame("b"); KindOf(err) != KindNotHost {
		t.Errorf("non-host start: kind = %v, want %v", KindOf(err), KindNotHost)
	}

	if err := g.StartGame("a"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if g.Phase != PhaseBetting {
		t.Fatalf("phase = %v, want %v", g.Phase, PhaseBetting)
	}
	if err := g.StartGame("a"); KindOf(err) != KindGameInProgress {
		t.Errorf("double start: kind = %v, want %v", KindOf(err), KindGameInProgress)
	}
	if err := g.CheckInvariants(); err != nil {
		t.Fatalf("invariants after start: %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	g := NewGame("s", 7, Options{})
	g.AddPlayer("a", "Alice")
	g.AddPlayer("b", "Bob")
	g.StartGame("a")

	c := g.Clone()
	c.Players[0].Lives = 0
	c.Hands["a"] = nil
	c.TurnOrder[0] = "x"

	if g.Players[0].Lives == 0 {
		t.Error("clone shares Players backing array")
	}
	if g.Hands["a"] == nil {
		t.Error("clone shares Hands map")
	}
	if g.TurnOrder[0] == "x" {
		t.Error("clone shares TurnOrder backing array")
	}
}

func TestCheckInvariantsCatchesDrift(t *testing.T) {
	g := NewGame("s", 7, Options{})
	g.AddPlayer("a", "Alice")
	g.AddPlayer("b", "Bob")
	g.StartGame("a")

	g.Players[0].Lives = 0 // eliminated flag deliberately left false
	if err := g.CheckInvariants(); err == nil {
		t.Error("lives/eliminated drift not caught")
	}
	g.Players[0].Lives = 3

	g.Table = []PlayedCard{{PlayerID: "a"}, {PlayerID: "b"}, {PlayerID: "c"}}
	if err := g.CheckInvariants(); err == nil {
		t.Error("oversized table not caught")
	}
}

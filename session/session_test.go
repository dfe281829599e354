package session

import (
	"errors"
	"testing"

	"github.com/turnwell/gameserver/game"
)

func testFormulation() *game.Formulation {
	return &game.Formulation{
		Name: "Test Game",
		Roles: game.NewRoleSet([]game.Role{
			{Name: "X", Min: 1, Max: 1},
			{Name: "O", Min: 1, Max: 1},
			{Name: game.ObserverRoleName, Min: 0, Max: 10},
		}, 2, -1),
	}
}

func TestAddUser(t *testing.T) {
	sess := NewSession("s1", testFormulation())

	isOwner, count, err := sess.AddUser("Alice")
	if err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}
	if !isOwner || count != 1 {
		t.Errorf("First joiner should own the session, got owner=%v count=%d", isOwner, count)
	}

	isOwner, count, err = sess.AddUser("Bob")
	if err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}
	if isOwner || count != 2 {
		t.Errorf("Second joiner should not own the session, got owner=%v count=%d", isOwner, count)
	}

	// Re-joining with a known name is a no-op.
	isOwner, count, err = sess.AddUser("Alice")
	if err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}
	if !isOwner || count != 2 {
		t.Errorf("Rejoin should keep ownership and count, got owner=%v count=%d", isOwner, count)
	}

	if _, _, err := sess.AddUser(""); !errors.Is(err, ErrInvalidUsername) {
		t.Errorf("Empty username should be rejected, got %v", err)
	}

	if !sess.IsOwner("Alice") || sess.IsOwner("Bob") {
		t.Error("Ownership check mismatch")
	}
}

func TestJoinRole_Toggle(t *testing.T) {
	sess := NewSession("s1", testFormulation())
	sess.AddUser("Alice")

	roles, err := sess.JoinRole("Alice", 0, RoleModeToggle)
	if err != nil {
		t.Fatalf("Toggle join failed: %v", err)
	}
	if roles[0].Current != 1 || roles[0].Who[0] != "Alice" {
		t.Errorf("Alice should hold role 0, got %+v", roles[0])
	}

	// Toggling again leaves the role.
	roles, err = sess.JoinRole("Alice", 0, RoleModeToggle)
	if err != nil {
		t.Fatalf("Toggle leave failed: %v", err)
	}
	if roles[0].Current != 0 {
		t.Errorf("Alice should have left role 0, got %+v", roles[0])
	}
}

func TestJoinRole_ExplicitModes(t *testing.T) {
	sess := NewSession("s1", testFormulation())
	sess.AddUser("Alice")

	if _, err := sess.JoinRole("Alice", 0, RoleModeJoin); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	// Joining a role already held changes nothing.
	if _, err := sess.JoinRole("Alice", 0, RoleModeJoin); !errors.Is(err, ErrNoChangeRequested) {
		t.Errorf("Expected ErrNoChangeRequested, got %v", err)
	}

	// Leaving a role not held changes nothing either.
	if _, err := sess.JoinRole("Alice", 1, RoleModeLeave); !errors.Is(err, ErrNoChangeRequested) {
		t.Errorf("Expected ErrNoChangeRequested, got %v", err)
	}

	if _, err := sess.JoinRole("Alice", 0, RoleModeLeave); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if got := sess.RolesForUser("Alice"); len(got) != 0 {
		t.Errorf("Alice should hold no roles, got %v", got)
	}
}

func TestJoinRole_Full(t *testing.T) {
	sess := NewSession("s1", testFormulation())
	sess.AddUser("Alice")
	sess.AddUser("Bob")

	if _, err := sess.JoinRole("Alice", 0, RoleModeJoin); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	_, err := sess.JoinRole("Bob", 0, RoleModeJoin)
	var full *RoleFullError
	if !errors.As(err, &full) {
		t.Fatalf("Expected RoleFullError, got %v", err)
	}
	if full.RoleName != "X" {
		t.Errorf("Expected role X in the error, got %q", full.RoleName)
	}

	// The refused join must not corrupt the membership table.
	roles := sess.RolesData()
	if roles[0].Current != 1 || roles[0].Who[0] != "Alice" {
		t.Errorf("Membership changed after a refused join: %+v", roles[0])
	}
}

func TestJoinRole_UnknownRole(t *testing.T) {
	sess := NewSession("s1", testFormulation())
	sess.AddUser("Alice")

	if _, err := sess.JoinRole("Alice", 99, RoleModeJoin); !errors.Is(err, ErrUnknownRole) {
		t.Errorf("Expected ErrUnknownRole, got %v", err)
	}
	if _, err := sess.JoinRole("Alice", -1, RoleModeJoin); !errors.Is(err, ErrUnknownRole) {
		t.Errorf("Expected ErrUnknownRole, got %v", err)
	}
}

func TestJoinRole_Frozen(t *testing.T) {
	sess := NewSession("s1", testFormulation())
	sess.AddUser("Alice")
	sess.AddUser("Bob")
	sess.JoinRole("Alice", 0, RoleModeJoin)

	sess.Lock()
	sess.RolesFrozen = true
	sess.Unlock()

	// Every change is rejected while frozen, observers included.
	if _, err := sess.JoinRole("Bob", 1, RoleModeJoin); !errors.Is(err, ErrRolesFrozen) {
		t.Errorf("Expected ErrRolesFrozen, got %v", err)
	}
	if _, err := sess.JoinRole("Bob", 2, RoleModeJoin); !errors.Is(err, ErrRolesFrozen) {
		t.Errorf("Expected ErrRolesFrozen for observer role, got %v", err)
	}
	if _, err := sess.JoinRole("Alice", 0, RoleModeLeave); !errors.Is(err, ErrRolesFrozen) {
		t.Errorf("Expected ErrRolesFrozen for leave, got %v", err)
	}

	sess.Lock()
	sess.RolesFrozen = false
	sess.Unlock()

	if _, err := sess.JoinRole("Bob", 1, RoleModeJoin); err != nil {
		t.Errorf("Unfrozen session should accept changes, got %v", err)
	}
}

func TestJoinRole_DuringGame(t *testing.T) {
	sess := NewSession("s1", testFormulation())
	sess.AddUser("Alice")
	sess.AddUser("Carol")
	sess.JoinRole("Alice", 0, RoleModeJoin)

	sess.Lock()
	sess.GameInProgress = true
	sess.Unlock()

	if _, err := sess.JoinRole("Carol", 1, RoleModeJoin); !errors.Is(err, ErrRoleRestrictedDuringGame) {
		t.Errorf("Expected ErrRoleRestrictedDuringGame, got %v", err)
	}

	// The Observer role stays open during play.
	if _, err := sess.JoinRole("Carol", 2, RoleModeJoin); err != nil {
		t.Errorf("Observer join during a game should succeed, got %v", err)
	}
	if _, err := sess.JoinRole("Carol", 2, RoleModeLeave); err != nil {
		t.Errorf("Observer leave during a game should succeed, got %v", err)
	}
}

func TestAllRequiredFilled(t *testing.T) {
	sess := NewSession("s1", testFormulation())
	sess.AddUser("Alice")
	sess.AddUser("Bob")

	if sess.AllRequiredFilled() {
		t.Error("Fresh session should not report all roles filled")
	}

	sess.JoinRole("Alice", 0, RoleModeJoin)
	if sess.AllRequiredFilled() {
		t.Error("One of two required roles is not enough")
	}

	sess.JoinRole("Bob", 1, RoleModeJoin)
	if !sess.AllRequiredFilled() {
		t.Error("Both required roles are filled")
	}

	// Observer occupancy never counts toward the requirement.
	sess.JoinRole("Bob", 1, RoleModeLeave)
	sess.JoinRole("Bob", 2, RoleModeJoin)
	if sess.AllRequiredFilled() {
		t.Error("An observer must not satisfy a required role")
	}
}

func TestSetup(t *testing.T) {
	sess := NewSession("s1", testFormulation())
	sess.AddUser("Alice")
	sess.AddUser("Bob")
	sess.JoinRole("Alice", 0, RoleModeJoin)
	sess.JoinRole("Bob", 1, RoleModeJoin)
	sess.JoinRole("Bob", 2, RoleModeJoin)

	sess.Lock()
	su := sess.Setup()
	sess.Unlock()

	if len(su.Players) != 2 {
		t.Fatalf("Expected 2 distinct players, got %v", su.Players)
	}
	if got := su.PlayersInRole(0); len(got) != 1 || got[0] != "Alice" {
		t.Errorf("Role 0 should hold Alice, got %v", got)
	}
	if got := su.PlayersInRole(1); len(got) != 1 || got[0] != "Bob" {
		t.Errorf("Role 1 should hold Bob, got %v", got)
	}
	// Bob holds two roles but gets a single player number.
	if su.Assignments[1][0] != su.Assignments[2][0] {
		t.Errorf("Bob's player number should be stable across roles: %v", su.Assignments)
	}
}

func TestTransitionHistory(t *testing.T) {
	sess := NewSession("s1", testFormulation())

	sess.Lock()
	sess.AppendHistory("Alice placed a mark.")
	sess.AppendHistory("Bob placed a mark.")
	sess.Unlock()

	history := sess.TransitionHistory()
	if len(history) != 2 {
		t.Fatalf("Expected 2 history entries, got %d", len(history))
	}
	if history[0].Message != "Alice placed a mark." || history[1].Message != "Bob placed a mark." {
		t.Errorf("History out of order: %+v", history)
	}
	if history[0].Timestamp.IsZero() {
		t.Error("History entries should carry timestamps")
	}

	// The returned slice is a copy, not a view.
	history[0].Message = "mutated"
	if sess.TransitionHistory()[0].Message != "Alice placed a mark." {
		t.Error("TransitionHistory must return an independent copy")
	}
}

func TestSummarize(t *testing.T) {
	sess := NewSession("s1", testFormulation())
	sess.AddUser("Alice")
	sess.AddUser("Bob")

	sum := sess.Summarize()
	if sum.SessionID != "s1" || sum.NumUsers != 2 || sum.Owner != "Alice" || sum.GameInProgress {
		t.Errorf("Unexpected summary: %+v", sum)
	}
}

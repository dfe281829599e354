package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/turnwell/gameserver/game"
	"github.com/turnwell/gameserver/session"
)

// countState is a two-player race to a total of 5. Adding past 5 is a
// transform failure, which exercises the retry path.
type countState struct {
	Total int
	Turn  int
	jit   string
}

func (s *countState) IsGoal() bool { return s.Total >= 5 }

func (s *countState) Clone() game.State {
	c := *s
	return &c
}

func (s *countState) String() string {
	return fmt.Sprintf("total=%d turn=%d", s.Total, s.Turn)
}

func (s *countState) CurrentRoleNum() int { return s.Turn }

func (s *countState) GoalMessage() string {
	if s.Total >= 5 {
		return fmt.Sprintf("Player %d reached 5!", s.Turn)
	}
	return ""
}

func (s *countState) TransitionMessage() string { return s.jit }

func countFormulation() *game.Formulation {
	addOne := &game.Operator{
		Label:   game.StaticLabel("add 1"),
		Precond: func(s game.State) bool { return s.(*countState).Total < 5 },
		Transform: func(s game.State, args []any) (game.State, error) {
			cur := s.(*countState)
			next := &countState{Total: cur.Total + 1, Turn: cur.Turn}
			if !next.IsGoal() {
				next.Turn = 1 - cur.Turn
			}
			next.jit = fmt.Sprintf("Added 1, total is now %d.", next.Total)
			return next, nil
		},
	}

	addN := &game.Operator{
		Label: game.StaticLabel("add n"),
		Params: game.StaticParams(game.ParamSpec{
			Name: "n", Type: "int", Min: 1, Max: 3,
		}),
		Transform: func(s game.State, args []any) (game.State, error) {
			n, ok := args[0].(int)
			if !ok || n < 1 || n > 3 {
				return nil, errors.New("n must be between 1 and 3")
			}
			cur := s.(*countState)
			if cur.Total+n > 5 {
				return nil, errors.New("that would overshoot 5")
			}
			next := &countState{Total: cur.Total + n, Turn: cur.Turn}
			if !next.IsGoal() {
				next.Turn = 1 - cur.Turn
			}
			next.jit = fmt.Sprintf("Added %d, total is now %d.", n, next.Total)
			return next, nil
		},
	}

	blocked := &game.Operator{
		Label:   game.StaticLabel("never applicable"),
		Precond: func(s game.State) bool { return false },
		Transform: func(s game.State, args []any) (game.State, error) {
			return s, nil
		},
	}

	return &game.Formulation{
		Name: "Count to Five",
		Roles: game.NewRoleSet([]game.Role{
			{Name: "First", Min: 1, Max: 1},
			{Name: "Second", Min: 1, Max: 1},
			{Name: game.ObserverRoleName, Min: 0, Max: 10},
		}, 2, -1),
		Operators: []*game.Operator{addOne, addN, blocked},
		NewInitialState: func(su game.Setup) game.State {
			return &countState{Total: 0, Turn: 0}
		},
	}
}

func newTestSession(t *testing.T) (*Engine, *session.Session) {
	t.Helper()
	f := countFormulation()
	e := New(f)
	sess := session.NewSession("test-session", f)
	sess.AddUser("Alice")
	sess.AddUser("Bob")
	if _, err := sess.JoinRole("Alice", 0, session.RoleModeJoin); err != nil {
		t.Fatalf("Role join failed: %v", err)
	}
	if _, err := sess.JoinRole("Bob", 1, session.RoleModeJoin); err != nil {
		t.Fatalf("Role join failed: %v", err)
	}
	return e, sess
}

func TestStart(t *testing.T) {
	e, sess := newTestSession(t)

	// Only the owner may start.
	if _, err := e.Start(sess, "Bob"); !errors.Is(err, ErrNotSessionOwner) {
		t.Errorf("Expected ErrNotSessionOwner, got %v", err)
	}

	state, err := e.Start(sess, "Alice")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if state.(*countState).Total != 0 {
		t.Errorf("Unexpected initial state: %v", state)
	}

	inProgress, _ := sess.Flags()
	if !inProgress {
		t.Error("Session should be in progress after start")
	}
	if sess.PreviousState() != nil {
		t.Error("A fresh game has no previous state")
	}

	if _, err := e.Start(sess, "Alice"); !errors.Is(err, ErrGameAlreadyInProgress) {
		t.Errorf("Expected ErrGameAlreadyInProgress, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	e, sess := newTestSession(t)

	if err := e.Cancel(sess, "Alice"); !errors.Is(err, ErrNoGameInProgress) {
		t.Errorf("Expected ErrNoGameInProgress, got %v", err)
	}

	e.Start(sess, "Alice")

	if err := e.Cancel(sess, "Bob"); !errors.Is(err, ErrNotSessionOwner) {
		t.Errorf("Expected ErrNotSessionOwner, got %v", err)
	}
	if err := e.Cancel(sess, "Alice"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	inProgress, _ := sess.Flags()
	if inProgress {
		t.Error("Canceled session should not be in progress")
	}
	// The final state stays readable after a cancel.
	if state, _ := sess.StateSnapshot(); state == nil {
		t.Error("Cancel must not discard the state")
	}
}

func TestSetRolesFrozen(t *testing.T) {
	e, sess := newTestSession(t)

	if err := e.SetRolesFrozen(sess, "Bob", true); !errors.Is(err, ErrNotSessionOwner) {
		t.Errorf("Expected ErrNotSessionOwner, got %v", err)
	}

	if err := e.SetRolesFrozen(sess, "Alice", true); err != nil {
		t.Fatalf("Freeze failed: %v", err)
	}
	if _, frozen := sess.Flags(); !frozen {
		t.Error("Session should report frozen roles")
	}

	// Freezing is a lobby operation, not an in-game one.
	e.SetRolesFrozen(sess, "Alice", false)
	e.Start(sess, "Alice")
	if err := e.SetRolesFrozen(sess, "Alice", true); !errors.Is(err, ErrGameAlreadyInProgress) {
		t.Errorf("Expected ErrGameAlreadyInProgress, got %v", err)
	}
}

// Full round trip: start, alternate moves to the goal, confirm history and
// completion come out in order.
func TestApply_FullGame(t *testing.T) {
	e, sess := newTestSession(t)
	e.Start(sess, "Alice")

	actors := []string{"Alice", "Bob", "Alice", "Bob", "Alice"}
	for i, who := range actors {
		update, err := e.Apply(sess, who, 0, nil)
		if err != nil {
			t.Fatalf("Move %d by %s failed: %v", i, who, err)
		}
		if update.Transition == nil {
			t.Fatalf("Move %d should produce a transition", i)
		}
		wantGoal := i == len(actors)-1
		if update.GoalReached != wantGoal {
			t.Errorf("Move %d goal flag = %v, want %v", i, update.GoalReached, wantGoal)
		}
	}

	inProgress, _ := sess.Flags()
	if inProgress {
		t.Error("Session should leave play once the goal is reached")
	}

	history := sess.TransitionHistory()
	if len(history) != 5 {
		t.Fatalf("Expected 5 history entries, got %d", len(history))
	}
	if history[4].Message != "Added 1, total is now 5." {
		t.Errorf("Unexpected final transition: %q", history[4].Message)
	}

	// A further move is refused now that the game is over.
	if _, err := e.Apply(sess, "Alice", 0, nil); !errors.Is(err, ErrNoGameInProgress) {
		t.Errorf("Expected ErrNoGameInProgress, got %v", err)
	}
}

func TestApply_TurnOrder(t *testing.T) {
	e, sess := newTestSession(t)
	e.Start(sess, "Alice")

	// Bob holds the second role; it is Alice's turn.
	if _, err := e.Apply(sess, "Bob", 0, nil); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("Expected ErrNotYourTurn, got %v", err)
	}

	// A participant with no role at all cannot act either.
	sess.JoinRole("Carol", 2, session.RoleModeJoin)
	if _, err := e.Apply(sess, "Carol", 0, nil); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("Expected ErrNotYourTurn for observer, got %v", err)
	}
}

func TestApply_UnknownOperator(t *testing.T) {
	e, sess := newTestSession(t)
	e.Start(sess, "Alice")

	if _, err := e.Apply(sess, "Alice", 42, nil); !errors.Is(err, ErrUnknownOperator) {
		t.Errorf("Expected ErrUnknownOperator, got %v", err)
	}
}

func TestApply_PreconditionFailed(t *testing.T) {
	e, sess := newTestSession(t)
	e.Start(sess, "Alice")

	before, _ := sess.StateSnapshot()
	if _, err := e.Apply(sess, "Alice", 2, nil); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("Expected ErrPreconditionFailed, got %v", err)
	}
	after, _ := sess.StateSnapshot()
	if before != after {
		t.Error("A refused operator must leave the state untouched")
	}
}

func TestApply_ParameterizedRetry(t *testing.T) {
	e, sess := newTestSession(t)
	e.Start(sess, "Alice")

	// A parameterized operator without arguments asks the client to retry
	// with parameters.
	_, err := e.Apply(sess, "Alice", 1, nil)
	var ae *ApplyError
	if !errors.As(err, &ae) || !ae.Retryable || ae.OperatorIndex != 1 {
		t.Fatalf("Expected retryable ApplyError for missing params, got %v", err)
	}

	// Bad argument values fail the transform but stay retryable.
	before, _ := sess.StateSnapshot()
	_, err = e.Apply(sess, "Alice", 1, []any{9})
	if !errors.As(err, &ae) || !ae.Retryable {
		t.Fatalf("Expected retryable ApplyError for bad value, got %v", err)
	}
	after, _ := sess.StateSnapshot()
	if before != after {
		t.Error("A failed transform must leave the state untouched")
	}

	// The same turn retries with a legal value and succeeds.
	update, err := e.Apply(sess, "Alice", 1, []any{3})
	if err != nil {
		t.Fatalf("Retry with valid params failed: %v", err)
	}
	if update.State.(*countState).Total != 3 {
		t.Errorf("Expected total 3, got %v", update.State)
	}
}

func TestApply_PrevStateSingleSlot(t *testing.T) {
	e, sess := newTestSession(t)
	e.Start(sess, "Alice")

	e.Apply(sess, "Alice", 0, nil)
	prev := sess.PreviousState()
	if prev == nil || prev.(*countState).Total != 0 {
		t.Fatalf("Previous state should be the pre-move snapshot, got %v", prev)
	}

	e.Apply(sess, "Bob", 0, nil)
	prev = sess.PreviousState()
	if prev.(*countState).Total != 1 {
		t.Errorf("The single slot should hold the latest predecessor, got %v", prev)
	}

	// A failed transform still overwrites the slot with its own snapshot.
	e.Apply(sess, "Alice", 1, []any{9})
	prev = sess.PreviousState()
	if prev.(*countState).Total != 2 {
		t.Errorf("Failed attempts overwrite the slot too, got %v", prev)
	}

	// The snapshot is independent of the live state.
	cur, _ := sess.StateSnapshot()
	if prev == cur {
		t.Error("Previous state must be a clone, not an alias")
	}
}

func TestOperatorParams(t *testing.T) {
	e, sess := newTestSession(t)

	if _, _, err := e.OperatorParams(sess, 1); !errors.Is(err, ErrNoGameInProgress) {
		t.Errorf("Expected ErrNoGameInProgress, got %v", err)
	}

	e.Start(sess, "Alice")

	label, specs, err := e.OperatorParams(sess, 1)
	if err != nil {
		t.Fatalf("OperatorParams failed: %v", err)
	}
	if label != "add n" {
		t.Errorf("Unexpected label %q", label)
	}
	if len(specs) != 1 || specs[0].Name != "n" || specs[0].Max != 3 {
		t.Errorf("Unexpected specs: %+v", specs)
	}

	if _, _, err := e.OperatorParams(sess, 0); !errors.Is(err, ErrNoParametersOnOperator) {
		t.Errorf("Expected ErrNoParametersOnOperator, got %v", err)
	}
	if _, _, err := e.OperatorParams(sess, 42); !errors.Is(err, ErrUnknownOperator) {
		t.Errorf("Expected ErrUnknownOperator, got %v", err)
	}
}

func TestAuthorized(t *testing.T) {
	turnState := &countState{Turn: 1}
	if Authorized(turnState, []int{0}) {
		t.Error("Holder of the wrong role is not authorized")
	}
	if !Authorized(turnState, []int{0, 1}) {
		t.Error("Holder of the acting role is authorized")
	}
	if Authorized(turnState, nil) {
		t.Error("No roles means no authorization")
	}

	// States without turn order admit any role holder.
	if !Authorized(freeForAllState{}, []int{2}) {
		t.Error("Any role holder may act on a state without turn order")
	}
	if Authorized(freeForAllState{}, nil) {
		t.Error("Roleless participants may never act")
	}
}

type freeForAllState struct{}

func (freeForAllState) IsGoal() bool      { return false }
func (freeForAllState) Clone() game.State { return freeForAllState{} }
func (freeForAllState) String() string    { return "free" }

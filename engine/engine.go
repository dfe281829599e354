// engine/engine.go
package engine

import (
	"errors"
	"fmt"

	"github.com/turnwell/gameserver/game"
	"github.com/turnwell/gameserver/logger"
	"github.com/turnwell/gameserver/session"
)

var (
	ErrNotSessionOwner        = errors.New("only session owner can execute this command")
	ErrGameAlreadyInProgress  = errors.New("game already in progress")
	ErrNoGameInProgress       = errors.New("no game in progress")
	ErrUnknownOperator        = errors.New("invalid operator")
	ErrNotYourTurn            = errors.New("not your turn")
	ErrPreconditionFailed     = errors.New("operator not applicable")
	ErrNoParametersOnOperator = errors.New("operator has no parameters")
)

// ApplyError 表示算子执行失败。带参数的算子允许换参重试，其余的只能放弃。
type ApplyError struct {
	OperatorIndex int
	Retryable     bool
	Err           error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("operator failed: %v", e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Update is the result of one accepted operator application: the successor
// state, the transition message it produced (if any), and the completion
// notice when the new state is a goal. The message rides the return value,
// never a side attribute of the state handed to clients.
type Update struct {
	State       game.State
	Transition  *session.Transition
	GoalReached bool
	Completion  string
}

// Engine validates turn ownership and drives operator application for one
// formulation. The formulation's operator list is read-only and shared by
// every session.
type Engine struct {
	f *game.Formulation
}

func New(f *game.Formulation) *Engine {
	return &Engine{f: f}
}

func (e *Engine) Formulation() *game.Formulation {
	return e.f
}

// Start constructs the initial state from the finalized membership snapshot
// and flips the session into play. Owner only. The membership snapshot is
// taken under the same lock, so the constructor always sees the roles as
// they were at the moment of the start command.
func (e *Engine) Start(sess *session.Session, username string) (game.State, error) {
	sess.Lock()
	defer sess.Unlock()

	if sess.Owner != username {
		return nil, ErrNotSessionOwner
	}
	if sess.GameInProgress {
		return nil, ErrGameAlreadyInProgress
	}

	initial := e.f.NewInitialState(sess.Setup())
	sess.State = initial
	sess.PrevState = nil
	sess.GameInProgress = true

	logger.Log.Infof("Game started for session %s by owner %s", sess.ID, username)
	return initial, nil
}

// Cancel halts an in-progress game without reaching a goal. Owner only.
func (e *Engine) Cancel(sess *session.Session, username string) error {
	sess.Lock()
	defer sess.Unlock()

	if sess.Owner != username {
		return ErrNotSessionOwner
	}
	if !sess.GameInProgress {
		return ErrNoGameInProgress
	}
	sess.GameInProgress = false

	logger.Log.Infof("Game canceled for session %s by owner %s", sess.ID, username)
	return nil
}

// SetRolesFrozen toggles the membership freeze. Owner only, and only while
// no game is running.
func (e *Engine) SetRolesFrozen(sess *session.Session, username string, frozen bool) error {
	sess.Lock()
	defer sess.Unlock()

	if sess.Owner != username {
		return ErrNotSessionOwner
	}
	if sess.GameInProgress {
		return ErrGameAlreadyInProgress
	}
	sess.RolesFrozen = frozen
	return nil
}

// Authorized reports whether username may act on state: for turn-based
// states, only holders of the acting role; otherwise any role holder.
func Authorized(state game.State, roles []int) bool {
	if tb, ok := state.(game.TurnBased); ok {
		current := tb.CurrentRoleNum()
		for _, r := range roles {
			if r == current {
				return true
			}
		}
		return false
	}
	return len(roles) > 0
}

// Apply runs one operator application end to end: resolve, authorize,
// check the precondition, snapshot the current state into the single
// previous-state slot, transform, record the transition, detect the goal.
// Any failure leaves the current state untouched.
func (e *Engine) Apply(sess *session.Session, username string, opIndex int, args []any) (*Update, error) {
	sess.Lock()
	defer sess.Unlock()

	if !sess.GameInProgress || sess.State == nil {
		return nil, ErrNoGameInProgress
	}

	op, ok := e.f.Operator(opIndex)
	if !ok {
		return nil, ErrUnknownOperator
	}

	current := sess.State
	if !Authorized(current, sess.RolesHeldBy(username)) {
		return nil, ErrNotYourTurn
	}

	if !op.Applicable(current) {
		return nil, ErrPreconditionFailed
	}

	parameterized := !op.Params.Empty()
	if parameterized && len(args) == 0 {
		return nil, &ApplyError{
			OperatorIndex: opIndex,
			Retryable:     true,
			Err:           errors.New("parameterized operator requires parameters"),
		}
	}
	if !parameterized {
		args = nil
	}

	// Single level of undo history: the slot is overwritten on every
	// attempt and survives a failed transform.
	sess.PrevState = current.Clone()

	next, err := op.Transform(current, args)
	if err != nil {
		logger.Log.Warnf("Operator %d failed in session %s: %v", opIndex, sess.ID, err)
		return nil, &ApplyError{OperatorIndex: opIndex, Retryable: parameterized, Err: err}
	}

	sess.State = next

	update := &Update{State: next}
	if msg := e.f.TransitionFor(current, next, op); msg != "" {
		entry := sess.AppendHistory(msg)
		update.Transition = &entry
	}

	if next.IsGoal() {
		sess.GameInProgress = false
		update.GoalReached = true
		update.Completion = e.f.CompletionMessage(next)
		logger.Log.Infof("Session %s reached a goal state: %s", sess.ID, update.Completion)
	}

	return update, nil
}

// OperatorParams resolves the parameter specification of a parameterized
// operator against the current state.
func (e *Engine) OperatorParams(sess *session.Session, opIndex int) (string, []game.ParamSpec, error) {
	sess.Lock()
	defer sess.Unlock()

	if !sess.GameInProgress || sess.State == nil {
		return "", nil, ErrNoGameInProgress
	}

	op, ok := e.f.Operator(opIndex)
	if !ok {
		return "", nil, ErrUnknownOperator
	}
	if op.Params.Empty() {
		return "", nil, ErrNoParametersOnOperator
	}

	specs := op.Params.Resolve(sess.State)
	return op.Label.Resolve(sess.State), specs, nil
}

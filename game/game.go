// game/game.go
package game

import "fmt"

// State 是一局游戏的不可变快照。Transform 永远返回新状态，不修改旧状态。
type State interface {
	// IsGoal reports whether this state ends the game.
	IsGoal() bool
	// Clone returns an independent copy used for the previous-state slot.
	Clone() State
	// String is the generic textual view sent when no renderer is available.
	String() string
}

// TurnBased is implemented by states of turn-taking games. States without it
// are treated as free-for-all: any role holder may act.
type TurnBased interface {
	CurrentRoleNum() int
}

// GoalMessenger supplies the completion message for a goal state.
// An empty string defers to the draw check and then the generic message.
type GoalMessenger interface {
	GoalMessage() string
}

// WinnerState exposes the winning role name, when one exists.
type WinnerState interface {
	Winner() string
}

// DrawCheck distinguishes a draw from a win when GoalMessage is empty.
type DrawCheck interface {
	MovesRemaining() bool
}

// Transitioner carries a just-in-time transition message attached by the
// transform that produced this state.
type Transitioner interface {
	TransitionMessage() string
}

// Label 要么是静态字符串，要么是根据状态计算的函数（比如"出示某张牌"）。
type Label struct {
	text string
	fn   func(State) string
}

func StaticLabel(text string) Label {
	return Label{text: text}
}

func ComputedLabel(fn func(State) string) Label {
	return Label{fn: fn}
}

// Resolve returns the concrete label for s. This is the single place where
// the static/computed distinction is collapsed.
func (l Label) Resolve(s State) string {
	if l.fn == nil {
		return l.text
	}
	if s == nil {
		return "deferred to runtime"
	}
	return l.fn(s)
}

// ParamSpec describes one argument a parameterized operator expects.
type ParamSpec struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Min     int      `json:"min,omitempty"`
	Max     int      `json:"max,omitempty"`
	Choices []string `json:"choices,omitempty"`
}

// Params 同 Label：静态规格表，或根据当前状态计算出的规格表。
type Params struct {
	specs []ParamSpec
	fn    func(State) []ParamSpec
}

func StaticParams(specs ...ParamSpec) Params {
	return Params{specs: specs}
}

func ComputedParams(fn func(State) []ParamSpec) Params {
	return Params{fn: fn}
}

// Empty reports whether the operator takes no parameters at all.
func (p Params) Empty() bool {
	return p.specs == nil && p.fn == nil
}

// Resolve returns the concrete parameter specs for s.
func (p Params) Resolve(s State) []ParamSpec {
	if p.fn != nil {
		return p.fn(s)
	}
	return p.specs
}

// Operator is a named, guarded state transition shared by every session of a
// formulation. Operators are immutable after construction.
type Operator struct {
	Label   Label
	Precond func(State) bool
	// Transform produces the successor state. Args is nil for operators
	// whose Params is empty. A returned error rejects the move without
	// advancing the session.
	Transform func(s State, args []any) (State, error)
	Params    Params
}

// Applicable evaluates the precondition, treating a missing one as true.
func (op *Operator) Applicable(s State) bool {
	if op.Precond == nil {
		return true
	}
	return op.Precond(s)
}

// Setup is the finalized role membership snapshot handed to a formulation's
// initial-state constructor. Membership never changes after Setup is taken
// while a game is in progress (observers aside).
type Setup struct {
	// Players lists distinct participant names in join order.
	Players []string
	// Assignments maps role index to player numbers (indexes into Players).
	Assignments [][]int
}

// PlayersInRole returns the names assigned to one role.
func (su Setup) PlayersInRole(role int) []string {
	if role < 0 || role >= len(su.Assignments) {
		return nil
	}
	names := make([]string, 0, len(su.Assignments[role]))
	for _, pn := range su.Assignments[role] {
		names = append(names, su.Players[pn])
	}
	return names
}

// TransitionRule is one row of a formulation's condition/action table.
// Rules are evaluated in declaration order; the first matching condition
// produces the transition message.
type TransitionRule struct {
	Cond   func(old, new State, op *Operator) bool
	Action func(old, new State, op *Operator) string
}

// Formulation 是插入内核的游戏规则集：状态构造器、算子表、角色表、渲染钩子。
type Formulation struct {
	Name      string
	Desc      string
	Roles     *RoleSet
	Operators []*Operator
	// NewInitialState builds the starting state from the finalized
	// membership snapshot.
	NewInitialState func(Setup) State
	// Render returns a role-specific view of the state, or "" when the
	// formulation has no view for that role set.
	Render func(s State, roles []int) string
	// Transitions is the optional condition/action table used when a state
	// carries no just-in-time transition message.
	Transitions []TransitionRule
}

// Operator resolves an operator by index.
func (f *Formulation) Operator(index int) (*Operator, bool) {
	if index < 0 || index >= len(f.Operators) {
		return nil, false
	}
	return f.Operators[index], true
}

// TransitionFor derives the transition message for one state change:
// the new state's own message wins, then the rule table, else "".
func (f *Formulation) TransitionFor(old, new State, op *Operator) string {
	if t, ok := new.(Transitioner); ok {
		if msg := t.TransitionMessage(); msg != "" {
			return msg
		}
	}
	for _, rule := range f.Transitions {
		if rule.Cond(old, new, op) {
			return rule.Action(old, new, op)
		}
	}
	return ""
}

// CompletionMessage derives the human-readable notice for a goal state.
func (f *Formulation) CompletionMessage(s State) string {
	if gm, ok := s.(GoalMessenger); ok {
		if msg := gm.GoalMessage(); msg != "" {
			return msg
		}
		if dc, ok := s.(DrawCheck); ok && !dc.MovesRemaining() {
			return fmt.Sprintf("It's a draw! Thanks for playing %s.", f.Name)
		}
	}
	return "Game completed!"
}

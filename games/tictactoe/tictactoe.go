// games/tictactoe/tictactoe.go
package tictactoe

import (
	"fmt"
	"strings"

	"github.com/turnwell/gameserver/game"
)

// 井字棋规则集：两个必填座位加任意数量的观战席。
// 作为内核契约的参考实现，也是集成测试用的棋盘。

const (
	RoleX = iota
	RoleO
	RoleObserver
)

var marks = [...]string{"X", "O"}

// State is one immutable board snapshot.
type State struct {
	Board      [3][3]int // 0 empty, 1 X, 2 O
	Turn       int       // acting role: RoleX or RoleO
	MoveCount  int
	winnerRole int // -1 while undecided
	jit        string
	players    [2]string // display names seated at X and O
}

func (s *State) CurrentRoleNum() int {
	return s.Turn
}

func (s *State) IsGoal() bool {
	return s.winnerRole >= 0 || s.MoveCount == 9
}

func (s *State) MovesRemaining() bool {
	return s.MoveCount < 9
}

func (s *State) Winner() string {
	if s.winnerRole < 0 {
		return ""
	}
	return marks[s.winnerRole]
}

func (s *State) GoalMessage() string {
	if s.winnerRole < 0 {
		return "" // draw; the engine supplies the draw message
	}
	name := s.players[s.winnerRole]
	if name == "" {
		name = marks[s.winnerRole]
	}
	return fmt.Sprintf("%s wins as %s!", name, marks[s.winnerRole])
}

func (s *State) TransitionMessage() string {
	return s.jit
}

func (s *State) Clone() game.State {
	c := *s
	return &c
}

func (s *State) String() string {
	var b strings.Builder
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			switch s.Board[r][c] {
			case 1:
				b.WriteString("X")
			case 2:
				b.WriteString("O")
			default:
				b.WriteString(".")
			}
		}
		b.WriteString("\n")
	}
	if !s.IsGoal() {
		fmt.Fprintf(&b, "%s to move", marks[s.Turn])
	}
	return b.String()
}

func (s *State) place(row, col int) *State {
	next := *s
	next.Board[row][col] = s.Turn + 1
	next.MoveCount++
	next.jit = fmt.Sprintf("%s placed a mark at row %d, column %d.", marks[s.Turn], row+1, col+1)
	next.winnerRole = winnerOf(next.Board)
	next.Turn = 1 - s.Turn
	return &next
}

func winnerOf(board [3][3]int) int {
	lines := [][3][2]int{
		{{0, 0}, {0, 1}, {0, 2}},
		{{1, 0}, {1, 1}, {1, 2}},
		{{2, 0}, {2, 1}, {2, 2}},
		{{0, 0}, {1, 0}, {2, 0}},
		{{0, 1}, {1, 1}, {2, 1}},
		{{0, 2}, {1, 2}, {2, 2}},
		{{0, 0}, {1, 1}, {2, 2}},
		{{0, 2}, {1, 1}, {2, 0}},
	}
	for _, line := range lines {
		a, b, c := line[0], line[1], line[2]
		v := board[a[0]][a[1]]
		if v != 0 && v == board[b[0]][b[1]] && v == board[c[0]][c[1]] {
			return v - 1
		}
	}
	return -1
}

func placeOperator(row, col int) *game.Operator {
	return &game.Operator{
		Label: game.StaticLabel(fmt.Sprintf("Place your mark at row %d, column %d", row+1, col+1)),
		Precond: func(s game.State) bool {
			st := s.(*State)
			return !st.IsGoal() && st.Board[row][col] == 0
		},
		Transform: func(s game.State, _ []any) (game.State, error) {
			st := s.(*State)
			if st.Board[row][col] != 0 {
				return nil, fmt.Errorf("square (%d,%d) is already taken", row+1, col+1)
			}
			return st.place(row, col), nil
		},
	}
}

// NewFormulation builds the tic-tac-toe rule set.
func NewFormulation() *game.Formulation {
	roles := game.NewRoleSet([]game.Role{
		{Name: "X", Min: 1, Max: 1},
		{Name: "O", Min: 1, Max: 1},
		{Name: game.ObserverRoleName, Min: 0, Max: 25},
	}, 2, -1)

	ops := make([]*game.Operator, 0, 9)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			ops = append(ops, placeOperator(r, c))
		}
	}

	return &game.Formulation{
		Name:      "Tic-Tac-Toe",
		Desc:      "The classic 3x3 game of X's and O's.",
		Roles:     roles,
		Operators: ops,
		NewInitialState: func(su game.Setup) game.State {
			st := &State{Turn: RoleX, winnerRole: -1}
			if who := su.PlayersInRole(RoleX); len(who) > 0 {
				st.players[RoleX] = who[0]
			}
			if who := su.PlayersInRole(RoleO); len(who) > 0 {
				st.players[RoleO] = who[0]
			}
			return st
		},
		Render: func(s game.State, roles []int) string {
			st := s.(*State)
			seat := ""
			for _, r := range roles {
				if r == RoleX || r == RoleO {
					seat = marks[r]
					break
				}
			}
			if seat == "" {
				return "" // observers and the unseated get the generic view
			}
			return fmt.Sprintf("You are %s.\n%s", seat, st.String())
		},
	}
}

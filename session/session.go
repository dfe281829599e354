// session/session.go
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/turnwell/gameserver/game"
)

var (
	ErrInvalidUsername          = errors.New("invalid username")
	ErrRolesFrozen              = errors.New("cannot change roles - they are frozen")
	ErrRoleRestrictedDuringGame = errors.New("during active games, only Observer role changes are allowed")
	ErrUnknownRole              = errors.New("invalid role number")
	ErrNoChangeRequested        = errors.New("no change made to your roles")
)

// RoleMode selects join/leave semantics for a role request.
type RoleMode string

const (
	RoleModeToggle RoleMode = "toggle"
	RoleModeJoin   RoleMode = "join"
	RoleModeLeave  RoleMode = "leave"
)

// RoleFullError 座位已满。区别于其他成员变更错误，携带角色名方便提示。
type RoleFullError struct {
	RoleName string
}

func (e *RoleFullError) Error() string {
	return fmt.Sprintf("role %s is full", e.RoleName)
}

// Transition is one entry of a session's append-only history.
type Transition struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RoleInfo is the per-role occupancy snapshot sent with every
// roles_announcement.
type RoleInfo struct {
	Desc    string   `json:"desc"`
	Min     int      `json:"min"`
	Max     int      `json:"max"`
	Who     []string `json:"who"`
	Current int      `json:"current"`
	RoleNum int      `json:"role_num"`
}

// Session 是隔离单元：一局独立运行（或待开始）的游戏实例。
//
// The embedded mutex is the session's unit of mutual exclusion. Membership
// methods take it themselves; multi-field game operations (start, apply) lock
// the session for the whole logical operation and release it before any
// outbound notification.
type Session struct {
	sync.Mutex

	ID          string
	Formulation *game.Formulation

	State      game.State
	PrevState  game.State
	History    []Transition
	membership [][]string // role index -> usernames

	users    []string // participant number -> name, in join order
	userNums map[string]int

	Owner          string
	GameInProgress bool
	RolesFrozen    bool

	CreatedAt  time.Time
	lastActive time.Time
}

func NewSession(id string, f *game.Formulation) *Session {
	now := time.Now()
	membership := make([][]string, f.Roles.Len())
	for i := range membership {
		membership[i] = []string{}
	}
	return &Session{
		ID:          id,
		Formulation: f,
		membership:  membership,
		users:       []string{},
		userNums:    make(map[string]int),
		History:     []Transition{},
		CreatedAt:   now,
		lastActive:  now,
	}
}

// Touch refreshes the last-activity timestamp.
func (s *Session) Touch() {
	s.Lock()
	s.lastActive = time.Now()
	s.Unlock()
}

// LastActive returns the last-activity timestamp.
func (s *Session) LastActive() time.Time {
	s.Lock()
	defer s.Unlock()
	return s.lastActive
}

// AddUser registers a participant, assigning the next numeric handle. The
// first participant becomes the session owner. Re-joining with a known name
// is a no-op.
func (s *Session) AddUser(username string) (isOwner bool, userCount int, err error) {
	if username == "" {
		return false, 0, ErrInvalidUsername
	}

	s.Lock()
	defer s.Unlock()

	if _, known := s.userNums[username]; !known {
		s.userNums[username] = len(s.users)
		s.users = append(s.users, username)
		if s.Owner == "" {
			s.Owner = username
		}
	}
	return username == s.Owner, len(s.users), nil
}

// IsOwner reports whether username owns this session.
func (s *Session) IsOwner(username string) bool {
	s.Lock()
	defer s.Unlock()
	return username != "" && username == s.Owner
}

// Users returns the participant names in join order.
func (s *Session) Users() []string {
	s.Lock()
	defer s.Unlock()
	users := make([]string, len(s.users))
	copy(users, s.users)
	return users
}

// JoinRole applies one membership change. Toggle mode removes the user if
// they already hold the role, otherwise adds them. Occupancy above the
// role's max is rejected; frozen sessions reject everything; in-progress
// sessions admit only Observer changes.
func (s *Session) JoinRole(username string, roleNum int, mode RoleMode) ([]RoleInfo, error) {
	s.Lock()
	defer s.Unlock()

	role, ok := s.Formulation.Roles.Get(roleNum)
	if !ok {
		return nil, ErrUnknownRole
	}
	if s.RolesFrozen {
		return nil, ErrRolesFrozen
	}
	if s.GameInProgress && !role.IsObserver() {
		return nil, ErrRoleRestrictedDuringGame
	}

	members := s.membership[roleNum]
	holding := indexOf(members, username)

	join := true
	switch mode {
	case RoleModeToggle:
		join = holding < 0
	case RoleModeJoin:
		join = true
	case RoleModeLeave:
		join = false
	}

	switch {
	case join && holding < 0:
		if len(members) >= role.Max {
			return nil, &RoleFullError{RoleName: role.Name}
		}
		s.membership[roleNum] = append(members, username)
	case !join && holding >= 0:
		s.membership[roleNum] = append(members[:holding], members[holding+1:]...)
	default:
		return nil, ErrNoChangeRequested
	}

	return s.rolesDataLocked(), nil
}

// RolesData returns the full per-role occupancy snapshot.
func (s *Session) RolesData() []RoleInfo {
	s.Lock()
	defer s.Unlock()
	return s.rolesDataLocked()
}

func (s *Session) rolesDataLocked() []RoleInfo {
	data := make([]RoleInfo, 0, len(s.membership))
	for i, members := range s.membership {
		role, _ := s.Formulation.Roles.Get(i)
		who := make([]string, len(members))
		copy(who, members)
		data = append(data, RoleInfo{
			Desc:    role.Name,
			Min:     role.Min,
			Max:     role.Max,
			Who:     who,
			Current: len(members),
			RoleNum: i,
		})
	}
	return data
}

// RolesForUser returns the role indexes held by username.
func (s *Session) RolesForUser(username string) []int {
	s.Lock()
	defer s.Unlock()
	return s.RolesHeldBy(username)
}

// RolesHeldBy is RolesForUser for callers that already hold the session lock.
func (s *Session) RolesHeldBy(username string) []int {
	var roles []int
	for i, members := range s.membership {
		if indexOf(members, username) >= 0 {
			roles = append(roles, i)
		}
	}
	return roles
}

// AllRequiredFilled reports whether every role with min > 0 has reached its
// minimum occupancy. Recomputed on demand, never cached.
func (s *Session) AllRequiredFilled() bool {
	s.Lock()
	defer s.Unlock()

	for i, members := range s.membership {
		role, _ := s.Formulation.Roles.Get(i)
		if role.Min > 0 && len(members) < role.Min {
			return false
		}
	}
	return true
}

// Setup builds the membership snapshot handed to the formulation's
// initial-state constructor. Players are numbered in role order, each name
// appearing once even when it holds several roles.
//
// Callers must hold the session lock.
func (s *Session) Setup() game.Setup {
	su := game.Setup{
		Players:     []string{},
		Assignments: make([][]int, len(s.membership)),
	}
	for i, members := range s.membership {
		su.Assignments[i] = []int{}
		for _, name := range members {
			pn := indexOf(su.Players, name)
			if pn < 0 {
				pn = len(su.Players)
				su.Players = append(su.Players, name)
			}
			su.Assignments[i] = append(su.Assignments[i], pn)
		}
	}
	return su
}

// AppendHistory records one transition message with a timestamp.
//
// Callers must hold the session lock.
func (s *Session) AppendHistory(message string) Transition {
	entry := Transition{Message: message, Timestamp: time.Now()}
	s.History = append(s.History, entry)
	return entry
}

// TransitionHistory returns a copy of the append-only transition log.
func (s *Session) TransitionHistory() []Transition {
	s.Lock()
	defer s.Unlock()
	history := make([]Transition, len(s.History))
	copy(history, s.History)
	return history
}

// Flags returns the lifecycle flags under one lock.
func (s *Session) Flags() (gameInProgress, rolesFrozen bool) {
	s.Lock()
	defer s.Unlock()
	return s.GameInProgress, s.RolesFrozen
}

// StateSnapshot returns the current state together with the in-progress
// flag, read under one lock.
func (s *Session) StateSnapshot() (game.State, bool) {
	s.Lock()
	defer s.Unlock()
	return s.State, s.GameInProgress
}

// PreviousState returns the single retained prior state, or nil.
func (s *Session) PreviousState() game.State {
	s.Lock()
	defer s.Unlock()
	return s.PrevState
}

// Summary is the entry returned by session listings.
type Summary struct {
	SessionID      string    `json:"session_id"`
	CreatedAt      time.Time `json:"created_at"`
	GameInProgress bool      `json:"game_in_progress"`
	NumUsers       int       `json:"num_users"`
	Owner          string    `json:"owner"`
}

func (s *Session) Summarize() Summary {
	s.Lock()
	defer s.Unlock()
	return Summary{
		SessionID:      s.ID,
		CreatedAt:      s.CreatedAt,
		GameInProgress: s.GameInProgress,
		NumUsers:       len(s.users),
		Owner:          s.Owner,
	}
}

func indexOf(list []string, v string) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

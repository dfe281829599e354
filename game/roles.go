// game/roles.go
package game

// ObserverRoleName marks the spectator role that may be joined or left even
// while a game is in progress.
const ObserverRoleName = "Observer"

// Role 是游戏中的一个抽象席位（阵营、角色），与坐进去的玩家无关。
type Role struct {
	Name string `json:"name"`
	Min  int    `json:"min"`
	Max  int    `json:"max"`
}

// IsObserver reports whether this role is the in-game escape hatch.
func (r Role) IsObserver() bool {
	return r.Name == ObserverRoleName
}

// RoleSet is the read-only role registry of a formulation, loaded once per
// process and shared by every session without synchronization.
type RoleSet struct {
	roles     []Role
	minToPlay int
	maxToPlay int // -1 means unlimited
}

// NewRoleSet builds a registry. minToPlay/maxToPlay bound how many roles must
// or may be occupied overall; maxToPlay < 0 means no ceiling.
func NewRoleSet(roles []Role, minToPlay, maxToPlay int) *RoleSet {
	if len(roles) == 0 {
		roles = []Role{{Name: "Player/Solver 1", Min: 1, Max: 1}}
	}
	return &RoleSet{
		roles:     roles,
		minToPlay: minToPlay,
		maxToPlay: maxToPlay,
	}
}

func (rs *RoleSet) Len() int {
	return len(rs.roles)
}

func (rs *RoleSet) Get(index int) (Role, bool) {
	if index < 0 || index >= len(rs.roles) {
		return Role{}, false
	}
	return rs.roles[index], true
}

func (rs *RoleSet) MinToPlay() int { return rs.minToPlay }
func (rs *RoleSet) MaxToPlay() int { return rs.maxToPlay }

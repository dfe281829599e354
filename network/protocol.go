package network

import "time"

// Inbound message types.
const (
	MsgTypeHeartbeat       = 1
	MsgTypeCreateSession   = 101
	MsgTypeJoinSession     = 102
	MsgTypeListSessions    = 103
	MsgTypeDeleteSession   = 104
	MsgTypeRoleRequest     = 111
	MsgTypeGameCommand     = 121
	MsgTypeGetOperators    = 201
	MsgTypeGetOpParams     = 202
	MsgTypeOperatorRequest = 203
	MsgTypeGetPrevState    = 211
	MsgTypeGetHistory      = 212
)

// Outbound message types.
const (
	MsgTypeError             = 2
	MsgTypeSessionCreated    = 301
	MsgTypeJoinedSession     = 302
	MsgTypeUserJoined        = 303
	MsgTypeSessionList       = 304
	MsgTypeSessionEnded      = 305
	MsgTypeRolesAnnouncement = 311
	MsgTypeGameStarted       = 321
	MsgTypeGameCanceled      = 322
	MsgTypeRolesFrozenStatus = 323
	MsgTypeStateUpdate       = 401
	MsgTypeOperatorsList     = 402
	MsgTypeOperatorParams    = 403
	MsgTypeTransition        = 404
	MsgTypeGameCompleted     = 405
	MsgTypePrevState         = 411
	MsgTypeHistory           = 412
)

// Game command names carried by MsgTypeGameCommand.
const (
	CmdStart         = "start"
	CmdCancelGame    = "cancel_game"
	CmdFreezeRoles   = "freeze_roles"
	CmdUnfreezeRoles = "unfreeze_roles"
)

// 入站请求载荷。session_id + username 基本上每个请求都要带。

type JoinSessionRequest struct {
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
}

type DeleteSessionRequest struct {
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
}

type RoleRequest struct {
	SessionID  string `json:"session_id"`
	Username   string `json:"username"`
	RoleNumber int    `json:"role_number"`
	Mode       string `json:"mode"` // toggle / join / leave
}

type GameCommandRequest struct {
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
	Command   string `json:"command"`
}

type GetOperatorsRequest struct {
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
}

type OperatorParamsRequest struct {
	SessionID     string `json:"session_id"`
	Username      string `json:"username"`
	OperatorIndex int    `json:"operator_index"`
}

type OperatorRequest struct {
	SessionID     string `json:"session_id"`
	Username      string `json:"username"`
	OperatorIndex int    `json:"operator_index"`
	Params        []any  `json:"params,omitempty"`
}

type HistoryRequest struct {
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
}

// 出站载荷。

type ErrorPayload struct {
	Message string `json:"message"`
	// OperatorIndex and CanRetry are set only for failed operator
	// applications that may be retried with corrected parameters.
	OperatorIndex int  `json:"operator_index,omitempty"`
	CanRetry      bool `json:"can_retry,omitempty"`
}

type SessionCreatedPayload struct {
	SessionID string `json:"session_id"`
}

type JoinedSessionPayload struct {
	SessionID      string `json:"session_id"`
	IsOwner        bool   `json:"is_owner"`
	RolesData      any    `json:"roles_data"`
	GameInProgress bool   `json:"game_in_progress"`
	RolesFrozen    bool   `json:"roles_frozen"`
}

type UserJoinedPayload struct {
	Username  string `json:"username"`
	UserCount int    `json:"user_count"`
}

type RolesAnnouncementPayload struct {
	RolesData any `json:"roles_data"`
}

type RolesFrozenPayload struct {
	Frozen bool `json:"frozen"`
}

type StateUpdatePayload struct {
	WhoseTurn      string `json:"whose_turn,omitempty"`
	CurrentRoleNum int    `json:"current_role_num"`
	IsGoal         bool   `json:"is_goal"`
	StateView      string `json:"state_view,omitempty"`
	StateText      string `json:"state_text,omitempty"`
	ForUser        string `json:"for_user,omitempty"`
}

type OperatorView struct {
	Index        int    `json:"index"`
	Description  string `json:"description"`
	IsApplicable bool   `json:"is_applicable"`
	HasParams    bool   `json:"has_params"`
}

type OperatorsListPayload struct {
	Operators []OperatorView `json:"operators"`
	ForUser   string         `json:"for_user"`
}

type OperatorParamsPayload struct {
	OperatorIndex int    `json:"operator_index"`
	OperatorName  string `json:"operator_name"`
	Params        any    `json:"params"`
}

type TransitionPayload struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type GameCompletedPayload struct {
	Message string `json:"message"`
}

type PrevStatePayload struct {
	HasPrevious bool   `json:"has_previous"`
	StateView   string `json:"state_view,omitempty"`
	StateText   string `json:"state_text,omitempty"`
}

type HistoryPayload struct {
	History []TransitionPayload `json:"history"`
}

type SessionEndedPayload struct {
	Message string `json:"message"`
}

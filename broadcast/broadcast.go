// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"

	"github.com/turnwell/gameserver/engine"
	"github.com/turnwell/gameserver/game"
	"github.com/turnwell/gameserver/logger"
	"github.com/turnwell/gameserver/network"
	"github.com/turnwell/gameserver/session"
)

// Notifier delivers framed events to participants. Defined here, implemented
// by the server's client registry, to keep this package free of transport
// details.
type Notifier interface {
	SendToUser(sessionID, username string, msgID uint16, data []byte) error
	SendToRoom(sessionID string, msgID uint16, data []byte) error
}

// Broadcaster computes per-participant views of a session and fans them out.
// 每个参与者只会看到自己当前可以执行的算子。
type Broadcaster struct {
	f        *game.Formulation
	notifier Notifier
}

func New(f *game.Formulation, notifier Notifier) *Broadcaster {
	return &Broadcaster{f: f, notifier: notifier}
}

// OperatorsFor computes the operator view for one participant: operators
// whose precondition holds and whose acting role matches the participant's
// authorization. Unauthorized participants get an empty list.
func (b *Broadcaster) OperatorsFor(sess *session.Session, username string) []network.OperatorView {
	state, inProgress := sess.StateSnapshot()
	if !inProgress || state == nil {
		return []network.OperatorView{}
	}

	views := []network.OperatorView{}
	if !engine.Authorized(state, sess.RolesForUser(username)) {
		return views
	}

	for i, op := range b.f.Operators {
		if !op.Applicable(state) {
			continue
		}
		views = append(views, network.OperatorView{
			Index:        i,
			Description:  op.Label.Resolve(state),
			IsApplicable: true,
			HasParams:    !op.Params.Empty(),
		})
	}
	return views
}

// PushOperators sends one participant their current operator list.
func (b *Broadcaster) PushOperators(sess *session.Session, username string) {
	b.sendToUser(sess.ID, username, network.MsgTypeOperatorsList, network.OperatorsListPayload{
		Operators: b.OperatorsFor(sess, username),
		ForUser:   username,
	})
}

// PushState fans the current state out. When the formulation's rendering
// hook yields a view for at least one participant, every participant gets a
// personal state_update; otherwise the whole room gets one generic textual
// update. Never both.
func (b *Broadcaster) PushState(sess *session.Session) {
	state, _ := sess.StateSnapshot()
	if state == nil {
		return
	}

	whoseTurn := ""
	currentRoleNum := -1
	if tb, ok := state.(game.TurnBased); ok {
		currentRoleNum = tb.CurrentRoleNum()
		if role, ok := b.f.Roles.Get(currentRoleNum); ok {
			whoseTurn = role.Name
		}
	}

	users := sess.Users()
	rendered := make(map[string]string, len(users))
	renderedCount := 0
	if b.f.Render != nil {
		for _, username := range users {
			view := b.f.Render(state, sess.RolesForUser(username))
			rendered[username] = view
			if view != "" {
				renderedCount++
			}
		}
	}

	if renderedCount > 0 {
		for _, username := range users {
			payload := network.StateUpdatePayload{
				WhoseTurn:      whoseTurn,
				CurrentRoleNum: currentRoleNum,
				IsGoal:         state.IsGoal(),
				ForUser:        username,
			}
			if view := rendered[username]; view != "" {
				payload.StateView = view
			} else {
				payload.StateText = state.String()
			}
			b.sendToUser(sess.ID, username, network.MsgTypeStateUpdate, payload)
		}
	} else {
		b.sendToRoom(sess.ID, network.MsgTypeStateUpdate, network.StateUpdatePayload{
			WhoseTurn:      whoseTurn,
			CurrentRoleNum: currentRoleNum,
			IsGoal:         state.IsGoal(),
			StateText:      state.String(),
		})
	}

	for _, username := range users {
		b.PushOperators(sess, username)
	}
}

// AnnounceRoles fans the occupancy snapshot out to the whole room.
func (b *Broadcaster) AnnounceRoles(sess *session.Session, rolesData []session.RoleInfo) {
	b.sendToRoom(sess.ID, network.MsgTypeRolesAnnouncement, network.RolesAnnouncementPayload{
		RolesData: rolesData,
	})
}

// PushTransition appends nothing; it only announces an already-recorded
// history entry to the room.
func (b *Broadcaster) PushTransition(sess *session.Session, entry session.Transition) {
	b.sendToRoom(sess.ID, network.MsgTypeTransition, network.TransitionPayload{
		Message:   entry.Message,
		Timestamp: entry.Timestamp,
	})
}

// PushCompletion announces the single goal notice for a finished game.
func (b *Broadcaster) PushCompletion(sess *session.Session, message string) {
	b.sendToRoom(sess.ID, network.MsgTypeGameCompleted, network.GameCompletedPayload{
		Message: message,
	})
}

// PreviousStateFor builds the single-level undo view for one participant.
func (b *Broadcaster) PreviousStateFor(sess *session.Session, username string) network.PrevStatePayload {
	prev := sess.PreviousState()
	if prev == nil {
		return network.PrevStatePayload{HasPrevious: false}
	}
	payload := network.PrevStatePayload{
		HasPrevious: true,
		StateText:   prev.String(),
	}
	if b.f.Render != nil {
		if view := b.f.Render(prev, sess.RolesForUser(username)); view != "" {
			payload.StateView = view
		}
	}
	return payload
}

func (b *Broadcaster) sendToUser(sessionID, username string, msgID uint16, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("Error marshalling message %d: %v", msgID, err)
		return
	}
	if err := b.notifier.SendToUser(sessionID, username, msgID, data); err != nil {
		logger.Log.Warnf("Send to %s in session %s failed: %v", username, sessionID, err)
	}
}

func (b *Broadcaster) sendToRoom(sessionID string, msgID uint16, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("Error marshalling message %d: %v", msgID, err)
		return
	}
	if err := b.notifier.SendToRoom(sessionID, msgID, data); err != nil {
		logger.Log.Warnf("Broadcast to session %s failed: %v", sessionID, err)
	}
}

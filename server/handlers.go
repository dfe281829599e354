// server/handlers.go
package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/turnwell/gameserver/engine"
	"github.com/turnwell/gameserver/game"
	"github.com/turnwell/gameserver/logger"
	"github.com/turnwell/gameserver/network"
	"github.com/turnwell/gameserver/session"
)

func (s *GameServer) handlePacket(client *Client, packet *network.Packet) {
	s.mon.IncMessagesReceived()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		client.LastActive = time.Now()
	case network.MsgTypeCreateSession:
		s.handleCreateSession(client)
	case network.MsgTypeJoinSession:
		s.handleJoinSession(client, packet)
	case network.MsgTypeListSessions:
		s.handleListSessions(client)
	case network.MsgTypeDeleteSession:
		s.handleDeleteSession(client, packet)
	case network.MsgTypeRoleRequest:
		s.handleRoleRequest(client, packet)
	case network.MsgTypeGameCommand:
		s.handleGameCommand(client, packet)
	case network.MsgTypeGetOperators:
		s.handleGetOperators(client, packet)
	case network.MsgTypeGetOpParams:
		s.handleGetOperatorParams(client, packet)
	case network.MsgTypeOperatorRequest:
		s.handleOperatorRequest(client, packet)
	case network.MsgTypeGetPrevState:
		s.handleGetPreviousState(client, packet)
	case network.MsgTypeGetHistory:
		s.handleGetHistory(client, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

// sendError surfaces a rejected request to the requester only. Other
// participants observe nothing until a successful mutation occurs.
func (s *GameServer) sendError(client *Client, err error) {
	payload := network.ErrorPayload{Message: err.Error()}

	var applyErr *engine.ApplyError
	if errors.As(err, &applyErr) {
		payload.OperatorIndex = applyErr.OperatorIndex
		payload.CanRetry = applyErr.Retryable
	}

	s.reply(client, network.MsgTypeError, payload)
}

func (s *GameServer) reply(client *Client, msgID uint16, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("Error marshalling reply %d: %v", msgID, err)
		return
	}
	if err := client.Send(msgID, data); err != nil {
		logger.Log.Warnf("Reply to client %s failed: %v", client.ID, err)
	}
}

func (s *GameServer) broadcastRoom(sessionID string, msgID uint16, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("Error marshalling broadcast %d: %v", msgID, err)
		return
	}
	s.registry.SendToRoom(sessionID, msgID, data)
}

func (s *GameServer) lookup(client *Client, sessionID string) (*session.Session, bool) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		s.sendError(client, err)
		return nil, false
	}
	return sess, true
}

func (s *GameServer) handleCreateSession(client *Client) {
	sess := s.store.Create()
	s.mon.SetActiveSessions(s.store.Len())

	logger.Log.Infof("Client %s created session %s", client.ID, sess.ID)
	s.reply(client, network.MsgTypeSessionCreated, network.SessionCreatedPayload{
		SessionID: sess.ID,
	})
}

func (s *GameServer) handleJoinSession(client *Client, packet *network.Packet) {
	var req network.JoinSessionRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(client, err)
		return
	}

	sess, ok := s.lookup(client, req.SessionID)
	if !ok {
		return
	}

	isOwner, userCount, err := sess.AddUser(req.Username)
	if err != nil {
		s.sendError(client, err)
		return
	}

	s.registry.Join(client, sess.ID, req.Username)
	logger.Log.Infof("User %s joined session %s", req.Username, sess.ID)

	inProgress, frozen := sess.Flags()
	s.reply(client, network.MsgTypeJoinedSession, network.JoinedSessionPayload{
		SessionID:      sess.ID,
		IsOwner:        isOwner,
		RolesData:      sess.RolesData(),
		GameInProgress: inProgress,
		RolesFrozen:    frozen,
	})

	data, _ := json.Marshal(network.UserJoinedPayload{
		Username:  req.Username,
		UserCount: userCount,
	})
	s.registry.SendToRoomExcept(sess.ID, client.ID, network.MsgTypeUserJoined, data)
}

func (s *GameServer) handleListSessions(client *Client) {
	s.reply(client, network.MsgTypeSessionList, s.store.Summaries())
}

// handleDeleteSession is the owner-initiated teardown: unlike the idle
// sweep, every participant is told before the session disappears.
func (s *GameServer) handleDeleteSession(client *Client, packet *network.Packet) {
	var req network.DeleteSessionRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(client, err)
		return
	}

	sess, ok := s.lookup(client, req.SessionID)
	if !ok {
		return
	}
	if !sess.IsOwner(req.Username) {
		s.sendError(client, engine.ErrNotSessionOwner)
		return
	}

	s.broadcastRoom(sess.ID, network.MsgTypeSessionEnded, network.SessionEndedPayload{
		Message: "Current session ended by owner " + req.Username,
	})

	s.store.Delete(sess.ID)
	s.registry.CloseRoom(sess.ID)
	s.mon.SetActiveSessions(s.store.Len())
	logger.Log.Infof("Session %s deleted by owner %s", sess.ID, req.Username)
}

func (s *GameServer) handleRoleRequest(client *Client, packet *network.Packet) {
	var req network.RoleRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(client, err)
		return
	}

	sess, ok := s.lookup(client, req.SessionID)
	if !ok {
		return
	}

	mode := session.RoleMode(req.Mode)
	if mode == "" {
		mode = session.RoleModeToggle
	}

	rolesData, err := sess.JoinRole(req.Username, req.RoleNumber, mode)
	if err != nil {
		s.sendError(client, err)
		return
	}

	s.broadcaster.AnnounceRoles(sess, rolesData)

	if s.autoStart {
		s.maybeAutoStart(sess)
	}
}

// maybeAutoStart starts the game as the owner once every required role is
// filled. Manual role assignment always runs first; this only reacts to it.
func (s *GameServer) maybeAutoStart(sess *session.Session) {
	if inProgress, _ := sess.Flags(); inProgress {
		return
	}
	if !sess.AllRequiredFilled() {
		return
	}

	owner := sess.Summarize().Owner
	logger.Log.Infof("All required roles filled in session %s - auto-starting game", sess.ID)
	s.startGame(sess, owner, nil)
}

// startGame runs the turn engine's start and fans out the opening state.
// A nil client means the start was machine-initiated (auto-start).
func (s *GameServer) startGame(sess *session.Session, username string, client *Client) {
	if _, err := s.engine.Start(sess, username); err != nil {
		if client != nil {
			s.sendError(client, err)
		}
		return
	}

	s.broadcastRoom(sess.ID, network.MsgTypeGameStarted, struct{}{})
	s.broadcaster.PushState(sess)
}

func (s *GameServer) handleGameCommand(client *Client, packet *network.Packet) {
	var req network.GameCommandRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(client, err)
		return
	}

	sess, ok := s.lookup(client, req.SessionID)
	if !ok {
		return
	}

	switch req.Command {
	case network.CmdStart:
		s.startGame(sess, req.Username, client)

	case network.CmdCancelGame:
		if err := s.engine.Cancel(sess, req.Username); err != nil {
			s.sendError(client, err)
			return
		}
		s.broadcastRoom(sess.ID, network.MsgTypeGameCanceled, struct{}{})

	case network.CmdFreezeRoles, network.CmdUnfreezeRoles:
		frozen := req.Command == network.CmdFreezeRoles
		if err := s.engine.SetRolesFrozen(sess, req.Username, frozen); err != nil {
			s.sendError(client, err)
			return
		}
		s.broadcastRoom(sess.ID, network.MsgTypeRolesFrozenStatus, network.RolesFrozenPayload{
			Frozen: frozen,
		})

	default:
		s.sendError(client, errors.New("unknown game command: "+req.Command))
	}
}

func (s *GameServer) handleGetOperators(client *Client, packet *network.Packet) {
	var req network.GetOperatorsRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(client, err)
		return
	}

	sess, ok := s.lookup(client, req.SessionID)
	if !ok {
		return
	}

	s.reply(client, network.MsgTypeOperatorsList, network.OperatorsListPayload{
		Operators: s.broadcaster.OperatorsFor(sess, req.Username),
		ForUser:   req.Username,
	})
}

func (s *GameServer) handleGetOperatorParams(client *Client, packet *network.Packet) {
	var req network.OperatorParamsRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(client, err)
		return
	}

	sess, ok := s.lookup(client, req.SessionID)
	if !ok {
		return
	}

	name, specs, err := s.engine.OperatorParams(sess, req.OperatorIndex)
	if err != nil {
		s.sendError(client, err)
		return
	}

	s.reply(client, network.MsgTypeOperatorParams, network.OperatorParamsPayload{
		OperatorIndex: req.OperatorIndex,
		OperatorName:  name,
		Params:        specs,
	})
}

func (s *GameServer) handleOperatorRequest(client *Client, packet *network.Packet) {
	var req network.OperatorRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(client, err)
		return
	}

	sess, ok := s.lookup(client, req.SessionID)
	if !ok {
		return
	}

	started := time.Now()
	update, err := s.engine.Apply(sess, req.Username, req.OperatorIndex, req.Params)
	if err != nil {
		s.sendError(client, err)
		return
	}

	s.mon.IncOperatorsApplied()
	s.mon.ObserveApplyLatency(time.Since(started))

	if update.Transition != nil {
		s.broadcaster.PushTransition(sess, *update.Transition)
	}
	s.broadcaster.PushState(sess)

	if update.GoalReached {
		s.broadcaster.PushCompletion(sess, update.Completion)
		winner := ""
		if ws, ok := update.State.(game.WinnerState); ok {
			winner = ws.Winner()
		}
		s.records.SaveCompleted(sess, winner, update.Completion)
	}
}

func (s *GameServer) handleGetPreviousState(client *Client, packet *network.Packet) {
	var req network.HistoryRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(client, err)
		return
	}

	sess, ok := s.lookup(client, req.SessionID)
	if !ok {
		return
	}

	s.reply(client, network.MsgTypePrevState, s.broadcaster.PreviousStateFor(sess, req.Username))
}

func (s *GameServer) handleGetHistory(client *Client, packet *network.Packet) {
	var req network.HistoryRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(client, err)
		return
	}

	sess, ok := s.lookup(client, req.SessionID)
	if !ok {
		return
	}

	history := sess.TransitionHistory()
	payload := network.HistoryPayload{History: make([]network.TransitionPayload, 0, len(history))}
	for _, entry := range history {
		payload.History = append(payload.History, network.TransitionPayload{
			Message:   entry.Message,
			Timestamp: entry.Timestamp,
		})
	}
	s.reply(client, network.MsgTypeHistory, payload)
}

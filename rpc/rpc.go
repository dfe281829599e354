package rpc

import (
	"net"
	"net/rpc"

	"github.com/turnwell/gameserver/logger"
	"github.com/turnwell/gameserver/models"
	"github.com/turnwell/gameserver/services"
	"github.com/turnwell/gameserver/session"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered separately
// with the net/rpc package before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes operational queries over net/rpc: the live session
// list and the archive of completed games.
type AdminService struct {
	store   *session.Store
	records *services.RecordService
}

func NewAdminService(store *session.Store, records *services.RecordService) *AdminService {
	return &AdminService{store: store, records: records}
}

type ListSessionsArgs struct{}

type ListSessionsReply struct {
	Sessions []session.Summary
}

func (as *AdminService) ListSessions(args *ListSessionsArgs, reply *ListSessionsReply) error {
	reply.Sessions = as.store.Summaries()
	return nil
}

type RecentGamesArgs struct {
	Limit int
}

type RecentGamesReply struct {
	Records []models.GameRecord
}

func (as *AdminService) RecentGames(args *RecentGamesArgs, reply *RecentGamesReply) error {
	records, err := as.records.Recent(args.Limit)
	if err != nil {
		return err
	}
	reply.Records = records
	return nil
}

// server/server.go
package server

import (
	"net/http"
	"net/rpc"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/turnwell/gameserver/broadcast"
	"github.com/turnwell/gameserver/engine"
	"github.com/turnwell/gameserver/game"
	"github.com/turnwell/gameserver/logger"
	"github.com/turnwell/gameserver/monitor"
	"github.com/turnwell/gameserver/network"
	gameserver_rpc "github.com/turnwell/gameserver/rpc"
	"github.com/turnwell/gameserver/services"
	"github.com/turnwell/gameserver/session"
)

type GameServer struct {
	addr         string
	upgrader     websocket.Upgrader
	store        *session.Store
	engine       *engine.Engine
	registry     *Registry
	broadcaster  *broadcast.Broadcaster
	records      *services.RecordService
	mon          *monitor.Monitor
	rpcServer    *gameserver_rpc.Server
	autoStart    bool
	shutdownChan chan struct{}
}

func NewGameServer(addr, rpcAddr string, f *game.Formulation, store *session.Store,
	records *services.RecordService, mon *monitor.Monitor, autoStart bool) *GameServer {

	registry := NewRegistry()

	s := &GameServer{
		addr:         addr,
		store:        store,
		engine:       engine.New(f),
		registry:     registry,
		broadcaster:  broadcast.New(f, registry),
		records:      records,
		mon:          mon,
		autoStart:    autoStart,
		shutdownChan: make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 静默回收：监听者直接被丢弃，不另行通知
	store.OnEvict = func(sess *session.Session) {
		registry.CloseRoom(sess.ID)
		mon.SetActiveSessions(store.Len())
	}

	// 初始化RPC服务器
	rpcServer, err := gameserver_rpc.NewServer(rpcAddr)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	// 注册RPC服务
	adminService := gameserver_rpc.NewAdminService(store, records)
	rpc.Register(adminService)

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	client := NewClient(uuid.New().String(), wsConn)
	s.registry.Add(client)
	s.mon.IncConnectedParticipants()

	logger.Log.Infof("New connection from %s, client ID: %s", wsConn.RemoteAddr(), client.ID)

	defer func() {
		logger.Log.Infof("Connection closed from %s, client ID: %s", wsConn.RemoteAddr(), client.ID)
		s.registry.Remove(client.ID)
		s.mon.DecConnectedParticipants()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(client, packet)
		}
	}
}

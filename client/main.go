package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeCreateSession   = 101
	MsgTypeJoinSession     = 102
	MsgTypeRoleRequest     = 111
	MsgTypeGameCommand     = 121
	MsgTypeGetOperators    = 201
	MsgTypeOperatorRequest = 203
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, payload any) error {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return err
		}
	}

	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

type request map[string]any

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Printf("Read error: %v", err)
				return
			}
			if len(message) < 4 {
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			log.Printf("<- msg %d: %s", msgID, message[4:])
		}
	}()

	var (
		sessionID string
		username  = "Player"
	)
	if len(os.Args) > 1 {
		username = os.Args[1]
	}

	log.Println("Commands: create | join <session_id> | role <n> | start | ops | op <n> [params...] | quit")

	// Input loop
	input := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			input <- scanner.Text()
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupted, closing connection")
			c.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case line := <-input:
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			switch fields[0] {
			case "create":
				send(c, MsgTypeCreateSession, nil)
			case "join":
				if len(fields) < 2 {
					log.Println("Usage: join <session_id>")
					continue
				}
				sessionID = fields[1]
				send(c, MsgTypeJoinSession, request{"session_id": sessionID, "username": username})
			case "role":
				if len(fields) < 2 {
					log.Println("Usage: role <n>")
					continue
				}
				n, _ := strconv.Atoi(fields[1])
				send(c, MsgTypeRoleRequest, request{
					"session_id": sessionID, "username": username,
					"role_number": n, "mode": "toggle",
				})
			case "start":
				send(c, MsgTypeGameCommand, request{
					"session_id": sessionID, "username": username, "command": "start",
				})
			case "ops":
				send(c, MsgTypeGetOperators, request{"session_id": sessionID, "username": username})
			case "op":
				if len(fields) < 2 {
					log.Println("Usage: op <n> [params...]")
					continue
				}
				n, _ := strconv.Atoi(fields[1])
				params := make([]any, 0, len(fields)-2)
				for _, p := range fields[2:] {
					params = append(params, p)
				}
				send(c, MsgTypeOperatorRequest, request{
					"session_id": sessionID, "username": username,
					"operator_index": n, "params": params,
				})
			case "quit":
				return
			default:
				log.Printf("Unknown command: %s", fields[0])
			}
		}
	}
}

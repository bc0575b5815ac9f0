// ABOUTME: Control client for sending one command to a running instance
// ABOUTME: Used by the -command flag of a second process invocation
package control

import (
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// Send dials the control endpoint at addr, sends one command, and
// returns the reply. A dial failure usually means no instance is
// running.
func Send(addr, command string) (*Message, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/control"}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(Message{Type: command}); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", command, err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var reply Message
	if err := conn.ReadJSON(&reply); err != nil {
		return nil, fmt.Errorf("failed to read reply: %w", err)
	}

	if reply.Type == TypeError {
		return &reply, fmt.Errorf("server rejected %s", command)
	}

	return &reply, nil
}

package chatws

import (
	"encoding/json"
	"log"

	websocket "github.com/gofiber/contrib/websocket"

	"github.com/Eterla/2025Fall-SE-Project-group2/internal/models"
)

// Hub is the process-wide connection registry. Every connected user sits in
// a private room keyed by their user id; clients may additionally join rooms
// keyed by conversation id for the thread they have open. All maps are owned
// exclusively by the Run loop, so no locking is needed.
type Hub struct {
	clients    map[int64]map[*Client]struct{}
	rooms      map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	joins      chan roomChange
	leaves     chan roomChange
	events     chan *event
}

// wireConn is the slice of *websocket.Conn the client pumps need.
type wireConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one websocket connection. send is never closed; the hub signals
// shutdown by closing done, so concurrent writers can never hit a closed
// channel.
type Client struct {
	hub    *Hub
	conn   wireConn
	userID int64
	send   chan []byte
	done   chan struct{}
	rooms  map[int64]struct{}
}

type roomChange struct {
	client         *Client
	conversationID int64
}

// event targets the user room of userID and/or the conversation room of
// conversationID; zero means "no such target". exclude suppresses delivery
// to one connection, used so typing senders do not hear themselves.
type event struct {
	userID         int64
	conversationID int64
	exclude        *Client
	payload        []byte
}

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// TypingPayload is re-emitted to rooms as a user_typing event.
type TypingPayload struct {
	FromUserID     int64 `json:"from_user_id"`
	ToUserID       int64 `json:"to_user_id,omitempty"`
	ConversationID int64 `json:"conversation_id,omitempty"`
	IsTyping       bool  `json:"is_typing"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		rooms:      make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		joins:      make(chan roomChange),
		leaves:     make(chan roomChange),
		events:     make(chan *event, 64),
	}
}

func NewClient(hub *Hub, conn wireConn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
		done:   make(chan struct{}),
		rooms:  make(map[int64]struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			h.drop(client)
		case change := <-h.joins:
			// The client's read loop keeps running for a moment after the
			// hub drops it, so a join can arrive for a connection that is
			// already gone. Ignore it; re-adding would leave a dead client
			// in the room.
			if !h.registered(change.client) {
				continue
			}
			set, ok := h.rooms[change.conversationID]
			if !ok {
				set = make(map[*Client]struct{})
				h.rooms[change.conversationID] = set
			}
			set[change.client] = struct{}{}
			change.client.rooms[change.conversationID] = struct{}{}
		case change := <-h.leaves:
			h.leaveRoom(change.client, change.conversationID)
		case e := <-h.events:
			h.deliver(e)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastNewMessage pushes a freshly stored message to the recipient's
// user room and to the conversation room, immediately after a successful
// send. Delivery is best effort; a client that missed it catches up by
// refetching the history.
func (h *Hub) BroadcastNewMessage(recipientID int64, message *models.Message) {
	payload, err := json.Marshal(envelope{Event: "new_message", Data: message})
	if err != nil {
		log.Printf("chat hub encode new_message: %v", err)
		return
	}
	h.events <- &event{
		userID:         recipientID,
		conversationID: message.ConversationID,
		payload:        payload,
	}
}

// Typing re-emits a typing indicator as user_typing to the recipient's user
// room and/or the conversation room, never back to the sender's own
// connection.
func (h *Hub) Typing(sender *Client, payload TypingPayload) {
	payload.FromUserID = sender.userID
	encoded, err := json.Marshal(envelope{Event: "user_typing", Data: payload})
	if err != nil {
		log.Printf("chat hub encode user_typing: %v", err)
		return
	}
	h.events <- &event{
		userID:         payload.ToUserID,
		conversationID: payload.ConversationID,
		exclude:        sender,
		payload:        encoded,
	}
}

func (h *Hub) registered(client *Client) bool {
	_, ok := h.clients[client.userID][client]
	return ok
}

func (h *Hub) drop(client *Client) {
	for conversationID := range client.rooms {
		h.leaveRoom(client, conversationID)
	}

	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, exists := set[client]; exists {
		delete(set, client)
		close(client.done)
	}
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
}

func (h *Hub) leaveRoom(client *Client, conversationID int64) {
	delete(client.rooms, conversationID)
	set, ok := h.rooms[conversationID]
	if !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.rooms, conversationID)
	}
}

// deliver fans the event out to the union of the targeted user room and
// conversation room. A client present in both still receives one copy.
func (h *Hub) deliver(e *event) {
	targets := make(map[*Client]struct{})
	if e.userID != 0 {
		for client := range h.clients[e.userID] {
			targets[client] = struct{}{}
		}
	}
	if e.conversationID != 0 {
		for client := range h.rooms[e.conversationID] {
			targets[client] = struct{}{}
		}
	}

	for client := range targets {
		if client == e.exclude {
			continue
		}
		select {
		case client.send <- e.payload:
		default:
			h.drop(client)
		}
	}
}

// ReadPump consumes client frames until the connection drops. Clients only
// send room management and typing events; messages themselves go through
// the HTTP API.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &incoming); err != nil {
			c.writeError("invalid event payload")
			continue
		}

		switch incoming.Event {
		case "join_conversation", "leave_conversation":
			var data struct {
				ConversationID int64 `json:"conversation_id"`
			}
			if err := json.Unmarshal(incoming.Data, &data); err != nil || data.ConversationID <= 0 {
				c.writeError("invalid conversation id")
				continue
			}
			change := roomChange{client: c, conversationID: data.ConversationID}
			if incoming.Event == "join_conversation" {
				c.hub.joins <- change
			} else {
				c.hub.leaves <- change
			}
		case "typing":
			var data TypingPayload
			if err := json.Unmarshal(incoming.Data, &data); err != nil {
				c.writeError("invalid typing payload")
				continue
			}
			if data.ToUserID == 0 && data.ConversationID == 0 {
				c.writeError("typing needs a recipient or conversation")
				continue
			}
			c.hub.Typing(c, data)
		default:
			c.writeError("unsupported event type")
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) writeError(message string) {
	payload, err := json.Marshal(envelope{Event: "error", Data: message})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
		c.hub.Unregister(c)
	}
}

package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Proctor message types raised by the hub itself
const (
	MsgCandidateLive MessageType = "candidate_connected"
	MsgCandidateLeft MessageType = "candidate_left"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans out live events: every proctor watching an assessment, and the
// single candidate connection of an attempt.
type Hub struct {
	proctorConns map[string]map[*Connection]struct{} // assessmentID -> conns
	attemptConns map[string]*Connection              // attemptID -> conn

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// Connection represents a WebSocket connection
type Connection struct {
	AssessmentID string
	AttemptID    string // Empty for proctor connections
	IsProctor    bool
	Send         chan []byte
	Hub          *Hub
}

// BroadcastMessage is a message to deliver. Disconnect closes the attempt
// connection after everything queued before it has been delivered.
type BroadcastMessage struct {
	AssessmentID string
	AttemptID    string
	Disconnect   bool
	Message      *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		proctorConns: make(map[string]map[*Connection]struct{}),
		attemptConns: make(map[string]*Connection),
		register:     make(chan *Connection),
		unregister:   make(chan *Connection),
		broadcast:    make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if conn.IsProctor {
				if h.proctorConns[conn.AssessmentID] == nil {
					h.proctorConns[conn.AssessmentID] = make(map[*Connection]struct{})
				}
				h.proctorConns[conn.AssessmentID][conn] = struct{}{}
				log.Printf("[WS] Proctor connected to assessment %s", conn.AssessmentID)
			} else {
				// a reconnect replaces the previous tab
				if old, ok := h.attemptConns[conn.AttemptID]; ok {
					close(old.Send)
				}
				h.attemptConns[conn.AttemptID] = conn
				log.Printf("[WS] Candidate connected to attempt %s", conn.AttemptID)
				h.notifyProctors(conn.AssessmentID, MsgCandidateLive, conn.AttemptID)
			}
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if conn.IsProctor {
				if conns, ok := h.proctorConns[conn.AssessmentID]; ok {
					if _, ok := conns[conn]; ok {
						delete(conns, conn)
						close(conn.Send)
						if len(conns) == 0 {
							delete(h.proctorConns, conn.AssessmentID)
						}
						log.Printf("[WS] Proctor disconnected from assessment %s", conn.AssessmentID)
					}
				}
			} else {
				if existing, ok := h.attemptConns[conn.AttemptID]; ok && existing == conn {
					delete(h.attemptConns, conn.AttemptID)
					close(conn.Send)
					log.Printf("[WS] Candidate disconnected from attempt %s", conn.AttemptID)
					h.notifyProctors(conn.AssessmentID, MsgCandidateLeft, conn.AttemptID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			if msg.Disconnect {
				h.mu.Lock()
				if conn, ok := h.attemptConns[msg.AttemptID]; ok {
					delete(h.attemptConns, msg.AttemptID)
					close(conn.Send)
					log.Printf("[WS] Closed feed for attempt %s", msg.AttemptID)
				}
				h.mu.Unlock()
				continue
			}

			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)
			if msg.AttemptID != "" {
				if conn, ok := h.attemptConns[msg.AttemptID]; ok {
					deliver(conn, data)
				}
			} else {
				for conn := range h.proctorConns[msg.AssessmentID] {
					deliver(conn, data)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// deliver drops the message when the connection's buffer is full
func deliver(conn *Connection, data []byte) {
	select {
	case conn.Send <- data:
	default:
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

func envelope(msgType MessageType, payload interface{}) *Message {
	data, _ := json.Marshal(payload)
	return &Message{Type: msgType, Payload: data}
}

// BroadcastToProctors sends a message to every proctor of an assessment (implements service.Broadcaster)
func (h *Hub) BroadcastToProctors(assessmentID string, msgType string, payload interface{}) {
	h.broadcast <- &BroadcastMessage{
		AssessmentID: assessmentID,
		Message:      envelope(MessageType(msgType), payload),
	}
}

// BroadcastToAttempt sends a message to the candidate taking the attempt (implements service.Broadcaster)
func (h *Hub) BroadcastToAttempt(attemptID string, msgType string, payload interface{}) {
	h.broadcast <- &BroadcastMessage{
		AttemptID: attemptID,
		Message:   envelope(MessageType(msgType), payload),
	}
}

// DisconnectAttempt closes the candidate feed of a terminated attempt (implements service.Broadcaster)
func (h *Hub) DisconnectAttempt(attemptID string) {
	h.broadcast <- &BroadcastMessage{
		AttemptID:  attemptID,
		Disconnect: true,
	}
}

// notifyProctors must be called with mu held
func (h *Hub) notifyProctors(assessmentID string, msgType MessageType, attemptID string) {
	data, _ := json.Marshal(envelope(msgType, map[string]string{"attemptId": attemptID}))
	for conn := range h.proctorConns[assessmentID] {
		deliver(conn, data)
	}
}

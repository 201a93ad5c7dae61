package relaycomm

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"air-firmware/pkg/config"
	"air-firmware/pkg/logger"
)

const (
	reconnectDelay = 5 * time.Second
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type RelayComm struct {
	mu       sync.Mutex
	writeMu  sync.Mutex
	conn     *websocket.Conn
	running  bool
	stopChan chan struct{}
	handlers map[string]func(json.RawMessage)
}

var instance *RelayComm
var once sync.Once

func Init() {
	once.Do(func() {
		instance = New()
	})
}

func Get() *RelayComm {
	if instance == nil {
		panic("relaycomm not initialized - call Init() first")
	}
	return instance
}

func New() *RelayComm {
	return &RelayComm{
		handlers: make(map[string]func(json.RawMessage)),
	}
}

// On registers a handler for a message type
func (r *RelayComm) On(messageType string, handler func(json.RawMessage)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[messageType] = handler
}

// Start connects to the relay server at relayURL and keeps reconnecting
// until Stop is called
func (r *RelayComm) Start(relayURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("already running")
	}
	if relayURL == "" {
		return fmt.Errorf("relay URL not configured")
	}

	r.running = true
	r.stopChan = make(chan struct{})

	go r.connectLoop(relayURL, r.stopChan)
	return nil
}

func (r *RelayComm) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.running = false
	close(r.stopChan)
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

// Send sends a message to the relay server
func (r *RelayComm) Send(messageType string, payload interface{}) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	msg := Message{
		Type:    messageType,
		Payload: payloadJSON,
	}

	// gorilla allows a single concurrent writer
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}

func (r *RelayComm) connectLoop(relayURL string, stop <-chan struct{}) {
	log := logger.Named("relaycomm")
	for {
		select {
		case <-stop:
			return
		default:
		}

		conn, err := r.connect(relayURL)
		if err != nil {
			log.Debugf("Relay connect failed: %v", err)
		} else {
			log.Infof("Connected to relay %s", relayURL)
			pingStop := make(chan struct{})
			go r.pingLoop(conn, pingStop)

			// Handle messages until connection closes
			r.handleMessages(conn)
			close(pingStop)

			r.mu.Lock()
			if r.conn == conn {
				r.conn = nil
			}
			r.mu.Unlock()
			log.Warn("Relay connection closed")
		}

		select {
		case <-stop:
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (r *RelayComm) connect(relayURL string) (*websocket.Conn, error) {
	// The unit authenticates with its device id
	id := config.Get().GetString("id")
	if id == "" {
		return nil, fmt.Errorf("device ID not found")
	}

	url := fmt.Sprintf("%s?unitId=%s", relayURL, id)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if !r.adopt(conn) {
		conn.Close()
		return nil, fmt.Errorf("stopped while connecting")
	}
	return conn, nil
}

// adopt makes conn the active connection unless Stop ran in the meantime
func (r *RelayComm) adopt(conn *websocket.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return false
	}
	r.conn = conn
	return true
}

func (r *RelayComm) handleMessages(conn *websocket.Conn) {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		r.dispatch(msg)
	}
}

// dispatch runs the handler for msg on its own goroutine
func (r *RelayComm) dispatch(msg Message) bool {
	r.mu.Lock()
	handler, ok := r.handlers[msg.Type]
	r.mu.Unlock()
	if !ok {
		logger.Named("relaycomm").Debugf("No handler for message type %s", msg.Type)
		return false
	}
	go handler(msg.Payload)
	return true
}

func (r *RelayComm) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.writeMu.Lock()
			conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			r.writeMu.Unlock()
		}
	}
}

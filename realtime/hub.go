package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Event types pushed to dashboard clients
const (
	EventPaymentPending  = "payment_pending"
	EventPaymentPaid     = "payment_paid"
	EventPaymentFailed   = "payment_failed"
	EventPaymentTimeout  = "payment_timeout"
	EventDashboardUpdate = "dashboard_update"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// PaymentEvent is the payload broadcast whenever a booking's payment
// status changes.
type PaymentEvent struct {
	BookingType string `json:"bookingType"`
	BookingID   uint   `json:"bookingId"`
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	Amount      string `json:"amount,omitempty"`
}

// Hub holds the connected dashboard clients (admin, operator) and
// broadcasts payment events to all of them.
type Hub struct {
	clients map[*websocket.Conn]string // conn -> role
	mutex   sync.Mutex
}

var hub = Hub{
	clients: make(map[*websocket.Conn]string),
}

// RegisterClient adds a connection to the set with its role
func RegisterClient(conn *websocket.Conn, role string) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.clients[conn] = role
}

// UnregisterClient releases a connection
func UnregisterClient(conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	delete(hub.clients, conn)
	conn.Close()
}

// BroadcastPaymentPending -> a new payment attempt was created
func BroadcastPaymentPending(event PaymentEvent) {
	broadcast(Message{Event: EventPaymentPending, Data: event})
}

// BroadcastPaymentUpdate -> a booking reached a terminal payment status
func BroadcastPaymentUpdate(event PaymentEvent) {
	eventType := EventDashboardUpdate
	switch event.Status {
	case "paid":
		eventType = EventPaymentPaid
	case "failed":
		eventType = EventPaymentFailed
	case "timeout":
		eventType = EventPaymentTimeout
	}
	broadcast(Message{Event: eventType, Data: event})
}

// BroadcastDashboardUpdate -> aggregate stats changed
func BroadcastDashboardUpdate(data interface{}) {
	broadcast(Message{Event: EventDashboardUpdate, Data: data})
}

// BroadcastMessage -> broadcast a generic message
func BroadcastMessage(msg Message) {
	broadcast(msg)
}

func broadcast(msg Message) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	if len(hub.clients) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	for conn, role := range hub.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("Error sending message to %s client: %v", role, err)
			continue
		}
	}
}

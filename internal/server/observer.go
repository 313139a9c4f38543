package server

import (
	"time"

	"go.uber.org/zap"
)

// EventKind identifies what happened to a session.
type EventKind string

const (
	EventConnected      EventKind = "connected"
	EventDisconnected   EventKind = "disconnected"
	EventInbound        EventKind = "inbound"
	EventDelivered      EventKind = "delivered"
	EventDeliveryFailed EventKind = "delivery_failed"
)

// Event is emitted to observers for every session lifecycle change, every
// inbound payload and every delivery outcome.
type Event struct {
	Kind       EventKind `json:"kind"`
	SessionID  int       `json:"session"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	Payload    string    `json:"payload,omitempty"`
	Err        error     `json:"-"`
	Time       time.Time `json:"time"`
}

// Observer receives session events. Notify is called from reader, listener
// and dispatcher goroutines concurrently and must not block for long.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Notify calls f(ev).
func (f ObserverFunc) Notify(ev Event) { f(ev) }

// Observers fans an event out to every member in order.
type Observers []Observer

// Notify implements Observer.
func (o Observers) Notify(ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Notify(ev)
		}
	}
}

// LogObserver writes every event to a structured logger.
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver creates an observer that logs events.
func NewLogObserver(logger *zap.Logger) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{logger: logger}
}

// Notify implements Observer.
func (l *LogObserver) Notify(ev Event) {
	fields := []zap.Field{
		zap.Int("session", ev.SessionID),
		zap.String("remote_addr", ev.RemoteAddr),
	}

	switch ev.Kind {
	case EventConnected:
		l.logger.Info("session connected", fields...)
	case EventDisconnected:
		l.logger.Info("session disconnected", append(fields, zap.NamedError("cause", ev.Err))...)
	case EventInbound:
		l.logger.Debug("inbound message", append(fields, zap.Int("bytes", len(ev.Payload)))...)
	case EventDelivered:
		l.logger.Debug("directive delivered", append(fields, zap.String("directive", ev.Payload))...)
	case EventDeliveryFailed:
		l.logger.Warn("directive delivery failed",
			append(fields, zap.String("directive", ev.Payload), zap.Error(ev.Err))...)
	}
}

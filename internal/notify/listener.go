// Package notify routes committed domain events to their websocket
// destinations and mirrors each event to the broker.
package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"messaging-service/internal/events"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/ws"
)

const publishTimeout = 5 * time.Second

// Listener turns bus events into hub broadcasts and user queue sends.
type Listener struct {
	hub       *ws.Hub
	publisher rabbitmq.Publisher
	logger    *logrus.Logger
}

func NewListener(hub *ws.Hub, publisher rabbitmq.Publisher, logger *logrus.Logger) *Listener {
	return &Listener{hub: hub, publisher: publisher, logger: logger}
}

// Register subscribes the listener on the bus.
func (l *Listener) Register(bus *events.Bus) {
	bus.Subscribe(l.Handle)
}

// Handle routes one event. Chat-wide changes go to the chat's topics;
// per-user notifications go to that user's private queue.
func (l *Listener) Handle(event events.Event) {
	switch e := event.(type) {
	case events.MessageSent:
		l.hub.Broadcast(ws.ChatTopic(e.ChatID), e.Message)
	case events.ChatCreated:
		for _, username := range e.Usernames {
			l.hub.SendToUser(username, ws.QueueNewChat, e.Chat)
		}
	case events.MemberUpdated:
		l.hub.Broadcast(ws.ChatMembersTopic(e.ChatID), e.Update)
	case events.ChatRemoved:
		l.hub.SendToUser(e.Username, ws.QueueChatRemoved, e.ChatID)
	case events.ChatUpdated:
		l.hub.Broadcast(ws.ChatUpdatesTopic(e.ChatID), e.Chat)
	case events.ContactUpdated:
		l.hub.SendToUser(e.TargetUsername, ws.QueueContactUpdates, e.Notification)
	default:
		l.logger.WithField("event", event.Kind()).Warn("unroutable event")
		return
	}

	l.mirror(event)
}

// mirror publishes the event to the broker. Delivery is best effort;
// a broker failure never reaches the caller.
func (l *Listener) mirror(event events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := l.publisher.Publish(ctx, event.Kind(), event); err != nil {
		l.logger.WithError(err).WithField("event", event.Kind()).Warn("event mirror failed")
	}
}

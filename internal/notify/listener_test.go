package notify

import (
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"messaging-service/internal/events"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/ws"
)

func newListenerFixture() (*Listener, *mocks.PublisherMock) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	publisher := &mocks.PublisherMock{}
	return NewListener(ws.NewHub(logger), publisher, logger), publisher
}

func TestHandleMirrorsEachEventKind(t *testing.T) {
	listener, publisher := newListenerFixture()

	chatID := uuid.New()
	routed := []events.Event{
		events.MessageSent{ChatID: chatID},
		events.ChatCreated{Chat: models.ChatDisplay{ID: chatID}, Usernames: []string{"alice"}},
		events.MemberUpdated{ChatID: chatID},
		events.ChatRemoved{ChatID: chatID, Username: "bob"},
		events.ChatUpdated{ChatID: chatID},
		events.ContactUpdated{TargetUsername: "bob"},
	}

	for _, e := range routed {
		publisher.On("Publish", mock.Anything, e.Kind(), e).Return(nil).Once()
	}

	for _, e := range routed {
		listener.Handle(e)
	}

	publisher.AssertExpectations(t)
}

type unknownEvent struct{}

func (unknownEvent) Kind() string { return "unknown" }

func TestHandleSkipsUnroutableEvents(t *testing.T) {
	listener, publisher := newListenerFixture()

	listener.Handle(unknownEvent{})

	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleSwallowsMirrorErrors(t *testing.T) {
	listener, publisher := newListenerFixture()

	event := events.MessageSent{ChatID: uuid.New()}
	publisher.On("Publish", mock.Anything, event.Kind(), event).Return(io.ErrClosedPipe).Once()

	listener.Handle(event)

	publisher.AssertExpectations(t)
}

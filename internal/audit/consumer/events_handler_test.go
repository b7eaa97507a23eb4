package consumer

//go:generate mockgen -source=events_handler.go -destination=mocks/events_handler-mocks.go -package=mocks MaterializedStore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"portico/internal/audit"
	consumermocks "portico/internal/audit/consumer/mocks"
	"portico/internal/platform/kafka/consumer"
)

type EventsHandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *consumermocks.MockMaterializedStore
	handler *EventsHandler
}

func TestEventsHandlerSuite(t *testing.T) {
	suite.Run(t, new(EventsHandlerSuite))
}

func (s *EventsHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.T().Cleanup(s.ctrl.Finish)
	s.store = consumermocks.NewMockMaterializedStore(s.ctrl)
	s.handler = NewEventsHandler(s.store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *EventsHandlerSuite) message(eventID uuid.UUID, value string) *consumer.Message {
	return &consumer.Message{
		Topic: "portico.audit.events",
		Key:   []byte(eventID.String()),
		Value: []byte(value),
	}
}

func (s *EventsHandlerSuite) TestMaterializesEvent() {
	eventID := uuid.New()
	txID := uuid.NewString()
	value := fmt.Sprintf(`{
		"ID": %q,
		"Category": "security",
		"Timestamp": "2026-08-21T10:30:00.123456Z",
		"TransactionID": %q,
		"RequestID": "req-1",
		"Op": "request",
		"Action": "token_rejected",
		"Outcome": "rejected",
		"Reason": "invalid_token",
		"Subject": "user-42",
		"ClientIP": "203.0.113.7"
	}`, eventID.String(), txID)

	var got audit.Event
	s.store.EXPECT().
		AppendWithID(gomock.Any(), eventID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, event audit.Event) error {
			got = event
			return nil
		})

	err := s.handler.Handle(context.Background(), s.message(eventID, value))
	s.Require().NoError(err)

	s.Equal(txID, got.TransactionID)
	s.Equal("token_rejected", got.Action)
	s.Equal("rejected", got.Outcome)
	s.Equal("invalid_token", got.Reason)
	s.Equal("203.0.113.7", got.ClientIP)
	s.Equal(2026, got.Timestamp.Year())
}

func (s *EventsHandlerSuite) TestPoisonKeyIsSkipped() {
	msg := &consumer.Message{
		Topic: "portico.audit.events",
		Key:   []byte("not-a-uuid"),
		Value: []byte(`{"Action":"token_rejected"}`),
	}

	err := s.handler.Handle(context.Background(), msg)
	s.Require().NoError(err, "poison messages commit rather than wedging the group")
}

func (s *EventsHandlerSuite) TestPoisonPayloadIsSkipped() {
	err := s.handler.Handle(context.Background(), s.message(uuid.New(), "{not json"))
	s.Require().NoError(err)
}

func (s *EventsHandlerSuite) TestStoreFailureIsReturned() {
	eventID := uuid.New()
	s.store.EXPECT().
		AppendWithID(gomock.Any(), eventID, gomock.Any()).
		Return(errors.New("connection refused"))

	err := s.handler.Handle(context.Background(), s.message(eventID, `{"Action":"token_rejected"}`))
	s.Require().Error(err)
	s.Contains(err.Error(), "store audit event")
}

func (s *EventsHandlerSuite) TestMissingTimestampDefaultsToNow() {
	eventID := uuid.New()

	var got audit.Event
	s.store.EXPECT().
		AppendWithID(gomock.Any(), eventID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, event audit.Event) error {
			got = event
			return nil
		})

	err := s.handler.Handle(context.Background(), s.message(eventID, `{"Action":"request_handled"}`))
	s.Require().NoError(err)
	s.WithinDuration(time.Now(), got.Timestamp, time.Minute)
}

type stubTopicHandler struct {
	calls int
	err   error
}

func (h *stubTopicHandler) Handle(context.Context, *consumer.Message) error {
	h.calls++
	return h.err
}

func TestRouter(t *testing.T) {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("routes to the registered handler", func(t *testing.T) {
		registered := &stubTopicHandler{}
		router := NewRouter(discard, nil)
		router.Register("portico.audit.events", registered)

		msg := &consumer.Message{Topic: "portico.audit.events", Key: []byte("k")}
		if err := router.Handle(context.Background(), msg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if registered.calls != 1 {
			t.Fatalf("expected 1 call, got %d", registered.calls)
		}
	})

	t.Run("unknown topic falls back", func(t *testing.T) {
		fallback := &stubTopicHandler{}
		router := NewRouter(discard, fallback)

		msg := &consumer.Message{Topic: "unknown", Key: []byte("k")}
		if err := router.Handle(context.Background(), msg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fallback.calls != 1 {
			t.Fatalf("expected fallback call, got %d", fallback.calls)
		}
	})

	t.Run("unknown topic without fallback commits", func(t *testing.T) {
		router := NewRouter(discard, nil)

		msg := &consumer.Message{Topic: "unknown", Key: []byte("k")}
		if err := router.Handle(context.Background(), msg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

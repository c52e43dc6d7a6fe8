package dispatcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"givebridge/internal/notification/models"
	"givebridge/internal/notification/store/memory"
	id "givebridge/pkg/domain"
)

type scriptedSender struct {
	mu       sync.Mutex
	failures map[id.NotificationID]int
	sent     []models.Event
}

func (s *scriptedSender) Send(_ context.Context, ev models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures[ev.ID] > 0 {
		s.failures[ev.ID]--
		return errors.New("channel unavailable")
	}
	s.sent = append(s.sent, ev)
	return nil
}

type DispatcherSuite struct {
	suite.Suite
	now    time.Time
	outbox *memory.InMemoryOutbox
	sender *scriptedSender
	disp   *Dispatcher
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.now = time.Now().UTC().Add(time.Second)
	s.outbox = memory.NewInMemoryOutbox()
	s.sender = &scriptedSender{failures: map[id.NotificationID]int{}}
	s.disp = New(s.outbox, s.sender, Config{
		BatchSize:   10,
		MaxAttempts: 3,
		RetryDelay:  time.Minute,
	},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *DispatcherSuite) enqueue() models.Event {
	ev := models.Event{
		ID:          id.NewNotificationID(),
		Type:        models.EventDonationAccepted,
		RecipientID: id.UserID(uuid.New()),
		DonationID:  id.NewDonationID(),
	}
	s.Require().NoError(s.outbox.Enqueue(context.Background(), ev))
	return ev
}

func (s *DispatcherSuite) TestDeliversAndRemoves() {
	ev := s.enqueue()

	n, err := s.disp.ProcessBatch(context.Background())
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Require().Len(s.sender.sent, 1)
	s.Equal(ev.ID, s.sender.sent[0].ID)

	n, err = s.disp.ProcessBatch(context.Background())
	s.Require().NoError(err)
	s.Equal(0, n)
}

func (s *DispatcherSuite) TestRetriesWithLinearBackoff() {
	ev := s.enqueue()
	s.sender.failures[ev.ID] = 1

	_, err := s.disp.ProcessBatch(context.Background())
	s.Require().NoError(err)
	s.Empty(s.sender.sent)

	s.Run("not retried before the delay", func() {
		s.now = s.now.Add(59 * time.Second)
		n, err := s.disp.ProcessBatch(context.Background())
		s.Require().NoError(err)
		s.Equal(0, n)
	})

	s.Run("retried once the delay passed", func() {
		s.now = s.now.Add(time.Second)
		n, err := s.disp.ProcessBatch(context.Background())
		s.Require().NoError(err)
		s.Equal(1, n)
		s.Len(s.sender.sent, 1)
	})
}

func (s *DispatcherSuite) TestParksAfterMaxAttempts() {
	ev := s.enqueue()
	s.sender.failures[ev.ID] = 10

	for i := 0; i < 3; i++ {
		_, err := s.disp.ProcessBatch(context.Background())
		s.Require().NoError(err)
		s.now = s.now.Add(time.Hour)
	}

	parked, err := s.outbox.ListByStatus(context.Background(), models.EntryExhausted)
	s.Require().NoError(err)
	s.Require().Len(parked, 1)
	s.Equal(3, parked[0].Attempts)
	s.Equal("channel unavailable", parked[0].LastError)

	n, err := s.disp.ProcessBatch(context.Background())
	s.Require().NoError(err)
	s.Equal(0, n)
	s.Empty(s.sender.sent)
}

func (s *DispatcherSuite) TestRunStopsOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.disp.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.Fail("dispatcher did not stop")
	}
}

package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
	now time.Time
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.now = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
}

func (s *BreakerSuite) newBreaker(opts ...Option) *Breaker {
	b := New("mail", opts...)
	b.now = func() time.Time { return s.now }
	return b
}

func (s *BreakerSuite) trip(b *Breaker, n int) {
	for range n {
		b.RecordFailure()
	}
}

func (s *BreakerSuite) TestDefaults() {
	b := s.newBreaker()

	s.Equal("mail", b.Name())
	s.Equal(StateClosed, b.State())
	s.Equal("closed", b.State().String())

	s.trip(b, 4)
	s.False(b.IsOpen(), "four failures stay under the default threshold")
	s.trip(b, 1)
	s.True(b.IsOpen())
	s.Equal("open", b.State().String())
}

func (s *BreakerSuite) TestOpening() {
	s.Run("reports the transition exactly once", func() {
		b := s.newBreaker(WithFailureThreshold(2))

		fallback, change := b.RecordFailure()
		s.False(fallback)
		s.Equal(Change{}, change)

		fallback, change = b.RecordFailure()
		s.True(fallback)
		s.Equal(Change{Opened: true}, change)

		fallback, change = b.RecordFailure()
		s.True(fallback)
		s.Equal(Change{}, change, "already open")
	})

	s.Run("success between failures restarts the count", func() {
		b := s.newBreaker(WithFailureThreshold(2))

		b.RecordFailure()
		primary, change := b.RecordSuccess()
		s.True(primary)
		s.Equal(Change{}, change)

		b.RecordFailure()
		s.False(b.IsOpen())
	})

	s.Run("non-positive options keep defaults", func() {
		b := s.newBreaker(WithFailureThreshold(0), WithSuccessThreshold(-1), WithCooldown(0))

		s.Equal(5, b.failureThreshold)
		s.Equal(2, b.successThreshold)
		s.Equal(30*time.Second, b.cooldown)
	})
}

func (s *BreakerSuite) TestHalfOpenProbe() {
	s.Run("open breaker lets one call through per cooldown", func() {
		b := s.newBreaker(WithFailureThreshold(1), WithCooldown(time.Minute))
		s.True(b.Allow())

		b.RecordFailure()
		s.False(b.Allow())

		s.now = s.now.Add(59 * time.Second)
		s.False(b.Allow(), "cooldown not elapsed")

		s.now = s.now.Add(time.Second)
		s.True(b.Allow())
		s.False(b.Allow(), "probe slot consumed until the next cooldown")
	})

	s.Run("failed probe keeps the breaker open", func() {
		b := s.newBreaker(WithFailureThreshold(1), WithCooldown(time.Minute))
		b.RecordFailure()

		s.now = s.now.Add(time.Minute)
		s.True(b.Allow())
		fallback, change := b.RecordFailure()
		s.True(fallback)
		s.Equal(Change{}, change)
		s.True(b.IsOpen())

		s.now = s.now.Add(30 * time.Second)
		s.False(b.Allow(), "cooldown restarts at the probe")
	})

	s.Run("successful probes close after the success threshold", func() {
		b := s.newBreaker(WithFailureThreshold(1), WithSuccessThreshold(2), WithCooldown(time.Minute))
		b.RecordFailure()

		s.now = s.now.Add(time.Minute)
		s.Require().True(b.Allow())
		primary, change := b.RecordSuccess()
		s.False(primary)
		s.Equal(Change{}, change)
		s.True(b.IsOpen())

		s.now = s.now.Add(time.Minute)
		s.Require().True(b.Allow())
		primary, change = b.RecordSuccess()
		s.True(primary)
		s.Equal(Change{Closed: true}, change)
		s.False(b.IsOpen())
		s.True(b.Allow())
	})

	s.Run("failure while open discards partial recovery", func() {
		b := s.newBreaker(WithFailureThreshold(1), WithSuccessThreshold(2))
		b.RecordFailure()

		b.RecordSuccess()
		b.RecordFailure()
		b.RecordSuccess()
		s.True(b.IsOpen())

		_, change := b.RecordSuccess()
		s.True(change.Closed)
	})
}

// Package payment implements the mobile-money payment simulator standing in
// for the real provider integration.
package payment

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-faster/errors"
)

// State enumerates the simulator's lifecycle.
type State string

const (
	// StateInput collects the payer's phone number.
	StateInput State = "input"
	// StateProcessing simulates the provider round-trip.
	StateProcessing State = "processing"
	// StateSuccess is terminal; a reference has been issued.
	StateSuccess State = "success"
)

// processingDelay is the fixed simulated provider latency.
const processingDelay = 3 * time.Second

// MethodTag identifies the simulated payment method on order payloads.
const MethodTag = "mobile-money"

var (
	// ErrInvalidPhone rejects numbers that are not 9 digits starting with 7.
	ErrInvalidPhone = errors.New("phone number must be 9 digits starting with 7")
	// ErrBusy rejects a submit while an attempt is already processing.
	ErrBusy = errors.New("payment attempt already in progress")
)

// ValidPhone reports whether s is a valid simulated mobile-money number:
// exactly 9 digits, the first being 7.
func ValidPhone(s string) bool {
	if len(s) != 9 || s[0] != '7' {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Receipt is the outcome of a successful simulated payment.
type Receipt struct {
	Reference string
	Method    string
	Phone     string
}

// Simulator runs one payment attempt at a time through
// input → processing → success. There is deliberately no failure branch:
// every submitted attempt succeeds after the fixed delay. Attempts are
// ephemeral; cancelling resets to input and the stale timer callback is
// suppressed by the attempt generation check.
type Simulator struct {
	prefix    string
	delay     time.Duration
	now       func() time.Time
	timer     func(d time.Duration) <-chan time.Time
	onSuccess func(Receipt)

	mu    sync.Mutex
	state State
	phone string
	ref   string
	gen   uint64
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithDelay overrides the simulated provider latency.
func WithDelay(d time.Duration) Option {
	return func(s *Simulator) { s.delay = d }
}

// WithClock overrides the time source and timer, for tests.
func WithClock(now func() time.Time, timer func(time.Duration) <-chan time.Time) Option {
	return func(s *Simulator) {
		s.now = now
		s.timer = timer
	}
}

// WithPrefix overrides the transaction reference prefix.
func WithPrefix(prefix string) Option {
	return func(s *Simulator) { s.prefix = prefix }
}

// New creates a Simulator in the input state. onSuccess is invoked (off the
// caller's goroutine) when an attempt reaches success; it resumes the
// checkout submission with the simulated method tag.
func New(onSuccess func(Receipt), opts ...Option) *Simulator {
	s := &Simulator{
		prefix:    "WAVE",
		delay:     processingDelay,
		now:       time.Now,
		timer:     time.After,
		onSuccess: onSuccess,
		state:     StateInput,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state and, once successful, the reference.
func (s *Simulator) State() (State, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.ref
}

// Submit starts processing for the given phone number. Submission is refused
// until the number is valid.
func (s *Simulator) Submit(phone string) error {
	if !ValidPhone(phone) {
		return ErrInvalidPhone
	}

	s.mu.Lock()
	if s.state == StateProcessing {
		s.mu.Unlock()
		return ErrBusy
	}
	s.state = StateProcessing
	s.phone = phone
	s.ref = ""
	gen := s.gen
	s.mu.Unlock()

	go s.complete(gen, phone)
	return nil
}

// complete waits out the simulated latency and settles the attempt. The
// timer has no abort handle; a cancelled attempt is suppressed here by the
// generation check once the timer fires.
func (s *Simulator) complete(gen uint64, phone string) {
	<-s.timer(s.delay)

	s.mu.Lock()
	if s.gen != gen || s.state != StateProcessing {
		s.mu.Unlock()
		return
	}
	s.state = StateSuccess
	s.ref = s.reference()
	receipt := Receipt{Reference: s.ref, Method: MethodTag, Phone: phone}
	cb := s.onSuccess
	s.mu.Unlock()

	if cb != nil {
		cb(receipt)
	}
}

// Cancel discards the in-progress attempt with no side effects: no reference
// is emitted and no callback fires.
func (s *Simulator) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = StateInput
	s.phone = ""
	s.ref = ""
}

// reference builds the synthetic transaction reference from the last six
// digits of the current timestamp. Caller holds s.mu.
func (s *Simulator) reference() string {
	return fmt.Sprintf("%s-%06d", s.prefix, s.now().UnixMilli()%1_000_000)
}

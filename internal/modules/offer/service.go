// README: Offer service is the transition guard: accept/decline and ride progress.
package offer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rideline/internal/logging"
	"rideline/internal/observability"
	"rideline/internal/types"
)

var (
	ErrBadRequest      = errors.New("bad request")
	ErrNotFound        = errors.New("ride not found")
	ErrNotRequested    = errors.New("ride not requested")
	ErrNotTargeted     = errors.New("not targeted to this driver")
	ErrAlreadyAccepted = errors.New("ride already taken")
	ErrDriverDeclined  = errors.New("driver already declined this ride")
	ErrInvalidState    = errors.New("invalid state transition")
)

const (
	OpAccept   = "accept"
	OpDecline  = "decline"
	OpRetarget = "retarget"
	OpStart    = "start"
	OpComplete = "complete"
	OpCancel   = "cancel"
)

type Service struct {
	repo          Repository
	events        EventLog
	notifier      Notifier
	notifyTimeout time.Duration
	log           *slog.Logger
	now           func() time.Time
}

type Option func(*Service)

func WithEventLog(l EventLog) Option { return func(s *Service) { s.events = l } }

func WithNotifier(n Notifier, timeout time.Duration) Option {
	return func(s *Service) {
		s.notifier = n
		s.notifyTimeout = timeout
	}
}

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		notifyTimeout: 5 * time.Second,
		log:           logging.Discard(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type AcceptCommand struct {
	RideID   types.ID
	DriverID types.ID
}

type DeclineCommand struct {
	RideID   types.ID
	DriverID types.ID
}

type RetargetCommand struct {
	RideID   types.ID
	DriverID types.ID
}

type StartCommand struct {
	RideID   types.ID
	DriverID types.ID
}

type CompleteCommand struct {
	RideID   types.ID
	DriverID types.ID
}

type CancelCommand struct {
	RideID types.ID
	Reason string
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Offer, error) {
	if id == "" {
		return nil, ErrBadRequest
	}
	return s.repo.Get(ctx, id)
}

// Accept hands the ride to cmd.DriverID. Only the targeted driver may accept,
// only from a requested-class status, and only once per ride.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) error {
	if cmd.RideID == "" || cmd.DriverID == "" {
		return ErrBadRequest
	}
	return s.apply(ctx, OpAccept, cmd.RideID, cmd.DriverID, func(o *Offer, now time.Time) error {
		switch {
		case o.Status == StatusAccepted || o.Status == StatusInProgress || o.Status == StatusCompleted:
			return ErrAlreadyAccepted
		case !IsRequestedClass(o.Status):
			return ErrNotRequested
		case o.DriverID != cmd.DriverID:
			return ErrNotTargeted
		}
		if err := moveTo(o, StatusAccepted); err != nil {
			return err
		}
		o.DriverAcceptance = AcceptanceAccepted
		o.AcceptedAt = &now
		if o.ProcessedAt == nil {
			o.ProcessedAt = &now
		}
		return nil
	})
}

// Decline records the targeted driver's refusal and releases the ride back to
// the dispatcher. The driver id is added to declined_driver_ids at most once.
func (s *Service) Decline(ctx context.Context, cmd DeclineCommand) error {
	if cmd.RideID == "" || cmd.DriverID == "" {
		return ErrBadRequest
	}
	return s.apply(ctx, OpDecline, cmd.RideID, cmd.DriverID, func(o *Offer, now time.Time) error {
		switch {
		case !IsRequestedClass(o.Status):
			return ErrNotRequested
		case o.DriverID != cmd.DriverID:
			return ErrNotTargeted
		}
		if err := moveTo(o, StatusRequestedPendingDriver); err != nil {
			return err
		}
		o.DriverAcceptance = AcceptanceDeclined
		if !o.HasDeclined(cmd.DriverID) {
			o.DeclinedDriverIDs = append(o.DeclinedDriverIDs, cmd.DriverID)
		}
		o.DriverID = ""
		if o.ProcessedAt == nil {
			o.ProcessedAt = &now
		}
		return nil
	})
}

// Retarget points a released ride at a new driver. Which driver is the
// dispatcher's decision; a driver who already declined is always refused.
func (s *Service) Retarget(ctx context.Context, cmd RetargetCommand) error {
	if cmd.RideID == "" || cmd.DriverID == "" {
		return ErrBadRequest
	}
	return s.apply(ctx, OpRetarget, cmd.RideID, cmd.DriverID, func(o *Offer, _ time.Time) error {
		if o.Status != StatusRequestedPendingDriver {
			return ErrInvalidState
		}
		if o.HasDeclined(cmd.DriverID) {
			return ErrDriverDeclined
		}
		if err := moveTo(o, StatusRequested); err != nil {
			return err
		}
		o.DriverID = cmd.DriverID
		o.DriverAcceptance = AcceptanceNone
		return nil
	})
}

func (s *Service) Start(ctx context.Context, cmd StartCommand) error {
	if cmd.RideID == "" || cmd.DriverID == "" {
		return ErrBadRequest
	}
	return s.apply(ctx, OpStart, cmd.RideID, cmd.DriverID, func(o *Offer, now time.Time) error {
		if o.Status != StatusAccepted {
			return ErrInvalidState
		}
		if o.DriverID != cmd.DriverID {
			return ErrNotTargeted
		}
		if err := moveTo(o, StatusInProgress); err != nil {
			return err
		}
		o.StartedAt = &now
		return nil
	})
}

func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) error {
	if cmd.RideID == "" || cmd.DriverID == "" {
		return ErrBadRequest
	}
	return s.apply(ctx, OpComplete, cmd.RideID, cmd.DriverID, func(o *Offer, now time.Time) error {
		if o.Status != StatusInProgress {
			return ErrInvalidState
		}
		if o.DriverID != cmd.DriverID {
			return ErrNotTargeted
		}
		if err := moveTo(o, StatusCompleted); err != nil {
			return err
		}
		o.CompletedAt = &now
		return nil
	})
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) error {
	if cmd.RideID == "" {
		return ErrBadRequest
	}
	return s.apply(ctx, OpCancel, cmd.RideID, "", func(o *Offer, now time.Time) error {
		if err := moveTo(o, StatusCancelled); err != nil {
			return err
		}
		o.CancelledAt = &now
		o.CancelReason = cmd.Reason
		return nil
	})
}

func moveTo(o *Offer, to Status) error {
	if !CanTransition(o.Status, to) {
		return ErrInvalidState
	}
	o.Status = to
	return nil
}

// apply runs check inside one repository transaction, then records the
// outcome. Side effects after commit never change the result.
func (s *Service) apply(ctx context.Context, op string, rideID, driverID types.ID, check func(o *Offer, now time.Time) error) error {
	var from Status
	committed, err := s.repo.Transact(ctx, rideID, func(o *Offer) error {
		from = o.Status
		return check(o, s.now())
	})
	observability.OfferTransitionsTotal.WithLabelValues(op, outcome(err)).Inc()
	if err != nil {
		attrs := []any{"operation", op, "ride_id", rideID, "driver_id", driverID, "error", err}
		if isPrecondition(err) {
			s.log.Info("offer transition rejected", attrs...)
		} else {
			s.log.Error("offer transition failed", attrs...)
		}
		return err
	}
	s.log.Info("offer transition committed",
		"operation", op, "ride_id", rideID, "driver_id", driverID,
		"from", from, "to", committed.Status)

	if s.events != nil {
		ev := &Event{
			RideID:     rideID,
			FromStatus: from,
			ToStatus:   committed.Status,
			Operation:  op,
			DriverID:   driverID,
			CreatedAt:  s.now(),
		}
		if err := s.events.AppendEvent(ctx, ev); err != nil {
			s.log.Warn("append offer event", "ride_id", rideID, "error", err)
		}
	}
	if s.notifier != nil && (op == OpAccept || op == OpDecline || op == OpCancel) {
		go s.notify(context.WithoutCancel(ctx), committed, op)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, o *Offer, op string) {
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	if err := s.notifier.OfferResolved(ctx, o, op); err != nil {
		s.log.Warn("offer notify failed", "ride_id", o.ID, "operation", op, "error", err)
	}
}

func isPrecondition(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotRequested) || errors.Is(err, ErrNotTargeted) ||
		errors.Is(err, ErrAlreadyAccepted) || errors.Is(err, ErrDriverDeclined) || errors.Is(err, ErrInvalidState)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotRequested):
		return "not_requested"
	case errors.Is(err, ErrNotTargeted):
		return "not_targeted"
	case errors.Is(err, ErrAlreadyAccepted):
		return "already_accepted"
	case errors.Is(err, ErrDriverDeclined):
		return "driver_declined"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	default:
		return "error"
	}
}

// Package wizard implements the booking wizard: a linear sequence of steps
// whose selections are validated locally before a booking is submitted to
// the salon API.
package wizard

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/salon-booking/internal/salonapi"
)

// Step of the wizard.
type Step int

const (
	StepSelectServices Step = iota + 1
	StepSelectStylist
	StepSelectDateTime
	StepConfirmIdentity
	StepConfirmed
)

func (s Step) String() string {
	switch s {
	case StepSelectServices:
		return "select_services"
	case StepSelectStylist:
		return "select_stylist"
	case StepSelectDateTime:
		return "select_datetime"
	case StepConfirmIdentity:
		return "confirm_identity"
	case StepConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// CustomerSource resolves the customer id for a submission. KnownCustomerID
// must not touch the network; FetchCustomerID may.
type CustomerSource interface {
	KnownCustomerID(ctx context.Context) (id string, authenticated bool)
	FetchCustomerID(ctx context.Context) (string, error)
}

// Submitter creates bookings.
type Submitter interface {
	CreateBooking(ctx context.Context, req salonapi.BookingRequest) (*salonapi.BookingResult, error)
}

// Draft holds the selections of an unsubmitted booking.
type Draft struct {
	SiteID     string
	ServiceIDs map[string]struct{}
	StylistID  string
	Date       Date
	TimeLabel  string
	CustomerID string
	Note       string
}

// Services returns the selected service ids in a stable order.
func (d Draft) Services() []string {
	out := make([]string, 0, len(d.ServiceIDs))
	for id := range d.ServiceIDs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Confirmation describes a submitted booking.
type Confirmation struct {
	BookingID   string   `json:"bookingId"`
	Code        string   `json:"code,omitempty"`
	Status      string   `json:"status,omitempty"`
	BookingDate int64    `json:"bookingDate"`
	SiteID      string   `json:"siteId"`
	CustomerID  string   `json:"customerId"`
	StaffID     string   `json:"staffId"`
	Services    []string `json:"services"`
}

// View is the wizard state handed to the front end. CustomerPending is set
// at step 4 when the user is signed in but the customer id is only resolved
// on submit.
type View struct {
	Step            Step          `json:"step"`
	StepName        string        `json:"stepName"`
	SiteID          string        `json:"siteId,omitempty"`
	Services        []string      `json:"services"`
	StylistID       string        `json:"stylistId,omitempty"`
	Date            string        `json:"date,omitempty"`
	Time            string        `json:"time,omitempty"`
	Note            string        `json:"note,omitempty"`
	CustomerID      string        `json:"customerId,omitempty"`
	CustomerPending bool          `json:"customerPending"`
	CanBack         bool          `json:"canBack"`
	CanNext         bool          `json:"canNext"`
	CanSubmit       bool          `json:"canSubmit"`
	Submitting      bool          `json:"submitting"`
	Error           string        `json:"error,omitempty"`
	ErrorStep       Step          `json:"errorStep,omitempty"`
	Confirmation    *Confirmation `json:"confirmation,omitempty"`
}

// Wizard is the booking state machine of one browser session.
type Wizard struct {
	loc *time.Location

	mu           sync.Mutex
	step         Step
	draft        Draft
	lastErr      *StepError
	submitting   bool
	confirmation *Confirmation
	// session present at step 4, customer id not yet known
	customerPending bool
}

// New creates a wizard at the first step. loc is the zone booking instants
// are composed in.
func New(loc *time.Location) *Wizard {
	if loc == nil {
		loc = time.Local
	}
	return &Wizard{loc: loc, step: StepSelectServices, draft: Draft{ServiceIDs: map[string]struct{}{}}}
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Draft returns a copy of the current selections.
func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draftLocked()
}

func (w *Wizard) draftLocked() Draft {
	d := w.draft
	d.ServiceIDs = make(map[string]struct{}, len(w.draft.ServiceIDs))
	for id := range w.draft.ServiceIDs {
		d.ServiceIDs[id] = struct{}{}
	}
	return d
}

func (w *Wizard) edit(fn func(d *Draft) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == StepConfirmed || w.submitting {
		return &StepError{Step: w.step, Err: ErrWrongStep}
	}
	if err := fn(&w.draft); err != nil {
		return &StepError{Step: w.step, Err: err}
	}
	w.lastErr = nil
	return nil
}

// SetSite selects the salon location the booking is made at.
func (w *Wizard) SetSite(siteID string) error {
	return w.edit(func(d *Draft) error {
		d.SiteID = strings.TrimSpace(siteID)
		return nil
	})
}

// SetServices replaces the selected services. Duplicates collapse.
func (w *Wizard) SetServices(ids []string) error {
	return w.edit(func(d *Draft) error {
		d.ServiceIDs = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" {
				d.ServiceIDs[id] = struct{}{}
			}
		}
		return nil
	})
}

// ToggleService adds or removes one service.
func (w *Wizard) ToggleService(id string) error {
	id = strings.TrimSpace(id)
	return w.edit(func(d *Draft) error {
		if id == "" {
			return nil
		}
		if _, ok := d.ServiceIDs[id]; ok {
			delete(d.ServiceIDs, id)
		} else {
			d.ServiceIDs[id] = struct{}{}
		}
		return nil
	})
}

// SetStylist selects a stylist. An empty id clears the selection.
func (w *Wizard) SetStylist(id string) error {
	return w.edit(func(d *Draft) error {
		d.StylistID = strings.TrimSpace(id)
		return nil
	})
}

// SetDateTime selects the calendar date (YYYY-MM-DD) and a time label.
// Either may be empty to clear it; non-empty values must parse.
func (w *Wizard) SetDateTime(date, timeLabel string) error {
	var parsed Date
	if strings.TrimSpace(date) != "" {
		d, err := ParseDate(date)
		if err != nil {
			return &StepError{Step: w.Step(), Err: err}
		}
		parsed = d
	}
	timeLabel = strings.TrimSpace(timeLabel)
	if timeLabel != "" {
		if _, _, err := ParseTimeLabel(timeLabel); err != nil {
			return &StepError{Step: w.Step(), Err: err}
		}
	}
	return w.edit(func(d *Draft) error {
		d.Date = parsed
		d.TimeLabel = timeLabel
		return nil
	})
}

// SetNote sets the free text note sent with the booking.
func (w *Wizard) SetNote(note string) error {
	return w.edit(func(d *Draft) error {
		d.Note = strings.TrimSpace(note)
		return nil
	})
}

// Next validates the current step and moves to the following one. Step 4
// is left only through Submit.
func (w *Wizard) Next(ctx context.Context, customers CustomerSource) error {
	w.mu.Lock()
	step, draft := w.step, w.draftLocked()
	busy := w.submitting
	w.mu.Unlock()

	if busy || step >= StepConfirmIdentity {
		return w.fail(step, ErrWrongStep)
	}
	if err := validateStep(step, draft); err != nil {
		return w.fail(step, err)
	}
	pending := false
	if step+1 == StepConfirmIdentity {
		id, err := identityCheck(ctx, customers)
		if err != nil {
			// Step 4 is still entered; it renders the login prompt.
			w.mu.Lock()
			if w.step == step {
				w.step = StepConfirmIdentity
				w.lastErr = &StepError{Step: StepConfirmIdentity, Err: err}
				w.customerPending = false
			}
			w.mu.Unlock()
			return nil
		}
		pending = id == ""
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == step {
		w.step = step + 1
		w.lastErr = nil
		w.customerPending = pending
	}
	return nil
}

// Back moves exactly one step back. It is not available on the first step
// or once the booking is confirmed.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitting || w.step <= StepSelectServices || w.step >= StepConfirmed {
		err := &StepError{Step: w.step, Err: ErrWrongStep}
		w.lastErr = err
		return err
	}
	w.step--
	w.lastErr = nil
	w.customerPending = false
	return nil
}

// Submit validates every step locally, resolves the customer id and creates
// the booking. On success the wizard moves to StepConfirmed; on failure it
// stays at step 4 with all selections intact.
func (w *Wizard) Submit(ctx context.Context, customers CustomerSource, api Submitter) (*Confirmation, error) {
	w.mu.Lock()
	if w.step != StepConfirmIdentity || w.submitting {
		step := w.step
		reason := ErrWrongStep
		if w.submitting {
			reason = ErrSubmitting
		}
		w.mu.Unlock()
		return nil, w.fail(step, reason)
	}
	// Edits are rejected from the moment the draft is copied.
	draft := w.draftLocked()
	w.submitting = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.submitting = false
		w.mu.Unlock()
	}()

	for step := StepSelectServices; step < StepConfirmIdentity; step++ {
		if err := validateStep(step, draft); err != nil {
			return nil, w.fail(step, err)
		}
	}
	if draft.SiteID == "" {
		return nil, w.fail(StepSelectServices, ErrNoSite)
	}
	hour, minute, err := ParseTimeLabel(draft.TimeLabel)
	if err != nil {
		return nil, w.fail(StepSelectDateTime, err)
	}

	customerID, err := resolveCustomerID(ctx, customers)
	if err != nil {
		return nil, w.fail(StepConfirmIdentity, err)
	}

	bookingDate := EncodeTimestamp(ComposeInstant(draft.Date, hour, minute, w.loc))
	services := draft.Services()
	req := BuildRequest(draft, customerID, bookingDate)

	res, err := api.CreateBooking(ctx, req)
	if err != nil {
		return nil, w.fail(StepConfirmIdentity, err)
	}

	conf := &Confirmation{
		BookingDate: bookingDate,
		SiteID:      draft.SiteID,
		CustomerID:  customerID,
		StaffID:     draft.StylistID,
		Services:    services,
	}
	if res != nil {
		conf.BookingID = res.ID.String()
		conf.Code = res.Code
		conf.Status = res.Status
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.CustomerID = customerID
	w.customerPending = false
	w.step = StepConfirmed
	w.lastErr = nil
	w.confirmation = conf
	return conf, nil
}

// BuildRequest assembles the booking body. Each service is booked once.
func BuildRequest(d Draft, customerID string, bookingDate int64) salonapi.BookingRequest {
	services := d.Services()
	lines := make([]salonapi.ServiceLine, 0, len(services))
	for _, id := range services {
		lines = append(lines, salonapi.ServiceLine{ServiceID: id, Quantity: 1})
	}
	return salonapi.BookingRequest{
		Booking: salonapi.BookingHeader{
			BookingDate: bookingDate,
			SiteID:      d.SiteID,
			CustomerID:  customerID,
			StaffID:     salonapi.OptionalString(d.StylistID),
			Note:        salonapi.OptionalString(d.Note),
		},
		Services: lines,
	}
}

// Reset discards the draft and returns to the first step. The site choice
// is kept.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	site := w.draft.SiteID
	w.step = StepSelectServices
	w.draft = Draft{SiteID: site, ServiceIDs: map[string]struct{}{}}
	w.lastErr = nil
	w.confirmation = nil
	w.customerPending = false
}

// State returns the view model.
func (w *Wizard) State() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := View{
		Step:            w.step,
		StepName:        w.step.String(),
		SiteID:          w.draft.SiteID,
		Services:        w.draft.Services(),
		StylistID:       w.draft.StylistID,
		Date:            w.draft.Date.String(),
		Time:            w.draft.TimeLabel,
		Note:            w.draft.Note,
		CustomerID:      w.draft.CustomerID,
		CustomerPending: w.step == StepConfirmIdentity && w.customerPending,
		CanBack:         !w.submitting && w.step > StepSelectServices && w.step < StepConfirmed,
		CanNext:         !w.submitting && w.step < StepConfirmIdentity && validateStep(w.step, w.draft) == nil,
		CanSubmit:       !w.submitting && w.step == StepConfirmIdentity,
		Submitting:      w.submitting,
		Confirmation:    w.confirmation,
	}
	if w.lastErr != nil {
		v.Error = w.lastErr.Message()
		v.ErrorStep = w.lastErr.Step
	}
	return v
}

func (w *Wizard) fail(step Step, err error) error {
	se := &StepError{Step: step, Err: err}
	w.mu.Lock()
	w.lastErr = se
	w.mu.Unlock()
	return se
}

func validateStep(step Step, d Draft) error {
	switch step {
	case StepSelectServices:
		if len(d.ServiceIDs) == 0 {
			return ErrNoServices
		}
	case StepSelectStylist:
		if d.StylistID == "" {
			return ErrNoStylist
		}
	case StepSelectDateTime:
		if d.Date.IsZero() || d.TimeLabel == "" {
			return ErrNoDateTime
		}
	}
	return nil
}

// identityCheck runs the network-free part of the customer chain.
func identityCheck(ctx context.Context, customers CustomerSource) (string, error) {
	if customers == nil {
		return "", ErrLoginRequired
	}
	id, authenticated := customers.KnownCustomerID(ctx)
	if id != "" {
		return id, nil
	}
	if !authenticated {
		return "", ErrLoginRequired
	}
	return "", nil
}

func resolveCustomerID(ctx context.Context, customers CustomerSource) (string, error) {
	id, err := identityCheck(ctx, customers)
	if err != nil || id != "" {
		return id, err
	}
	id, err = customers.FetchCustomerID(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrNotLinked
	}
	return id, nil
}

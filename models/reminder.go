package models

import (
	"fmt"
	"time"
)

// Kind identifies the type of a health reminder.
type Kind string

const (
	KindAppointment   Kind = "appointment"
	KindMedication    Kind = "medication"
	KindBloodPressure Kind = "bloodpressure"
	KindWater         Kind = "water"
)

// AppointmentLead is how long before the stored appointment instant the
// notification fires.
const AppointmentLead = 60 * time.Minute

const (
	periodDay      = 24 * time.Hour
	periodHour     = time.Hour
	periodHalfHour = 30 * time.Minute
)

// Date layouts used on the wire and in persistence. Medication reminders
// repeat daily, so only the time of day is kept.
const (
	DateTimeLayout = "2006-01-02 15:04"
	TimeOnlyLayout = "15:04"
)

// ParseKind validates a kind received from a client.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAppointment, KindMedication, KindBloodPressure, KindWater:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown reminder kind %q", s)
}

// IsRegular reports whether reminders of this kind re-fire periodically.
func (k Kind) IsRegular() bool {
	switch k {
	case KindAppointment:
		return false
	case KindMedication, KindBloodPressure, KindWater:
		return true
	}
	return false
}

// IsUnique reports whether at most one live reminder of this kind may exist
// per client, regardless of its schedule parameters.
func (k Kind) IsUnique() bool {
	switch k {
	case KindBloodPressure, KindWater:
		return true
	case KindAppointment, KindMedication:
		return false
	}
	return false
}

// Period returns the repetition interval for regular kinds, zero otherwise.
func (k Kind) Period() time.Duration {
	switch k {
	case KindMedication:
		return periodDay
	case KindBloodPressure:
		return periodHour
	case KindWater:
		return periodHalfHour
	case KindAppointment:
		return 0
	}
	return 0
}

// HighPriority reports whether notifications of this kind are pushed with
// high priority. Whether priority is honored depends on the transport.
func (k Kind) HighPriority() bool {
	switch k {
	case KindAppointment, KindMedication:
		return true
	case KindBloodPressure, KindWater:
		return false
	}
	return false
}

// NotificationText returns the message pushed to the client for this kind.
func (k Kind) NotificationText() string {
	switch k {
	case KindAppointment:
		return fmt.Sprintf("You have a doctor's appointment in %d minutes!", int(AppointmentLead.Minutes()))
	case KindMedication:
		return "Please take your medication now!"
	case KindBloodPressure:
		return "Please measure your blood pressure now!"
	case KindWater:
		return "Please drink a glass of water now!"
	}
	return ""
}

// DateLayout returns the layout clients use to express this kind's schedule.
func (k Kind) DateLayout() string {
	if k == KindMedication {
		return TimeOnlyLayout
	}
	return DateTimeLayout
}

// Identity is the deduplication key of a reminder. Two reminders describe the
// same entity iff their identities are equal, so Identity is a plain
// comparable value usable directly as a map key. For unique kinds the slot is
// empty: identity then depends on the kind alone.
type Identity struct {
	Kind Kind
	Slot string
}

func (id Identity) String() string {
	if id.Slot == "" {
		return string(id.Kind)
	}
	return string(id.Kind) + "@" + id.Slot
}

// Reminder describes one scheduled health prompt. It is a value type:
// construct it with NewReminder or ParseReminder and treat it as immutable.
type Reminder struct {
	Kind        Kind      `bson:"kind" json:"kind"`
	TriggerTime time.Time `bson:"triggerTime" json:"triggerTime"`
	// Remind arms the reminder when true; false requests cancellation.
	Remind bool `bson:"remind" json:"remind"`
	// TimeZone is the IANA zone name of the scheduling host, captured at
	// creation so recomputation after a restart uses the same zone.
	TimeZone string `bson:"timeZone" json:"timeZone"`
}

// NewReminder builds a reminder for the given trigger instant. Sub-second
// components of the trigger time are discarded and the host time zone is
// captured.
func NewReminder(kind Kind, triggerTime time.Time, remind bool) Reminder {
	return Reminder{
		Kind:        kind,
		TriggerTime: triggerTime.Truncate(time.Second),
		Remind:      remind,
		TimeZone:    time.Now().Location().String(),
	}
}

// ParseReminder builds a reminder from the date text a client sent, using the
// kind's date layout interpreted in the host time zone.
func ParseReminder(kind Kind, dateText string, remind bool) (Reminder, error) {
	t, err := time.ParseInLocation(kind.DateLayout(), dateText, time.Local)
	if err != nil {
		return Reminder{}, fmt.Errorf("parse %s date %q: %w", kind, dateText, err)
	}
	return NewReminder(kind, t, remind), nil
}

// Location resolves the captured time zone, falling back to the host zone if
// the stored name no longer resolves.
func (r Reminder) Location() *time.Location {
	if r.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(r.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Identity derives the deduplication key. Unique kinds ignore all schedule
// fields; medication keys on the time of day; appointments key on the full
// minute the appointment is stored for.
func (r Reminder) Identity() Identity {
	switch r.Kind {
	case KindBloodPressure, KindWater:
		return Identity{Kind: r.Kind}
	case KindMedication:
		return Identity{Kind: r.Kind, Slot: r.TriggerTime.In(r.Location()).Format(TimeOnlyLayout)}
	case KindAppointment:
		return Identity{Kind: r.Kind, Slot: r.TriggerTime.In(r.Location()).Format(DateTimeLayout)}
	}
	return Identity{Kind: r.Kind}
}

// NextFireTime computes the first instant a notification for this reminder is
// due, anchored to the captured time zone:
//
//   - appointments fire once, AppointmentLead before the stored instant
//   - medication fires at the stored time of day, today, then every 24h
//   - blood pressure fires at the stored instant, then every hour
//   - water fires at the stored instant, then every 30 minutes
func (r Reminder) NextFireTime(now time.Time) time.Time {
	loc := r.Location()
	switch r.Kind {
	case KindAppointment:
		return r.TriggerTime.Add(-AppointmentLead)
	case KindMedication:
		at := r.TriggerTime.In(loc)
		n := now.In(loc)
		return time.Date(n.Year(), n.Month(), n.Day(), at.Hour(), at.Minute(), 0, 0, loc)
	case KindBloodPressure, KindWater:
		return r.TriggerTime
	}
	return r.TriggerTime
}

// FormattedDate renders the trigger time with the kind's date layout in the
// captured zone, for listing armed reminders back to clients.
func (r Reminder) FormattedDate() string {
	return r.TriggerTime.In(r.Location()).Format(r.Kind.DateLayout())
}

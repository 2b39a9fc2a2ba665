// Package icalendar renders events as iCalendar (RFC 5545) documents.
package icalendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/ersonp/calcore/internal/domain/entities"
)

// ProductID is the PRODID of every exported calendar.
const ProductID = "-//calcore//EN"

// UserURI returns the calendar address used for a calcore user.
func UserURI(userID string) string {
	return "urn:calcore:user:" + userID
}

var frequencies = map[entities.RecurrencePattern]rrule.Frequency{
	entities.RecurrenceDaily:   rrule.DAILY,
	entities.RecurrenceWeekly:  rrule.WEEKLY,
	entities.RecurrenceMonthly: rrule.MONTHLY,
	entities.RecurrenceYearly:  rrule.YEARLY,
}

// Encode writes a VCALENDAR holding event to w. The first owner becomes the
// ORGANIZER; every other participant is an ATTENDEE carrying its role.
func Encode(w io.Writer, event *entities.Event, perms []entities.Permission, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Children = append(cal.Children, ToComponent(event, perms, stamp))

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encoding event %s: %w", event.ID, err)
	}
	return nil
}

// ToComponent converts an event into a VEVENT.
func ToComponent(event *entities.Event, perms []entities.Permission, stamp time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, event.ID)
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.Start.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.End.UTC())

	if !event.CreatedAt.IsZero() {
		ve.Props.SetDateTime(ical.PropCreated, event.CreatedAt.UTC())
	}
	if !event.UpdatedAt.IsZero() {
		ve.Props.SetDateTime(ical.PropLastModified, event.UpdatedAt.UTC())
	}
	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		ve.Props.SetText(ical.PropLocation, event.Location)
	}
	if freq, ok := frequencies[event.RecurrencePattern]; ok && event.IsRecurring {
		ve.Props.SetRecurrenceRule(&rrule.ROption{Freq: freq})
	}

	organizer := false
	for _, p := range perms {
		if p.Role == entities.RoleOwner && !organizer {
			prop := ical.NewProp(ical.PropOrganizer)
			prop.Value = UserURI(p.UserID)
			prop.Params.Set(ical.ParamCommonName, p.UserID)
			ve.Props.Add(prop)
			organizer = true
			continue
		}
		prop := ical.NewProp(ical.PropAttendee)
		prop.Value = UserURI(p.UserID)
		prop.Params.Set(ical.ParamCommonName, p.UserID)
		prop.Params.Set(ical.ParamRole, attendeeRole(p.Role))
		ve.Props.Add(prop)
	}
	return ve
}

func attendeeRole(role entities.Role) string {
	switch role {
	case entities.RoleOwner:
		return "CHAIR"
	case entities.RoleEditor:
		return "REQ-PARTICIPANT"
	default:
		return "OPT-PARTICIPANT"
	}
}

package entities

import "time"

// ChangeType indicates which lifecycle operation produced a snapshot.
type ChangeType string

const (
	ChangeCreate ChangeType = "CREATE"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// Snapshot is an immutable capture of an event at one point in its history.
// Versions start at 1 and increase by one per mutation of the same event.
type Snapshot struct {
	ID         string     `json:"id"`
	EventID    string     `json:"event_id"`
	Version    int        `json:"version"`
	ChangeType ChangeType `json:"change_type"`
	ChangedBy  string     `json:"changed_by"`
	Reason     string     `json:"reason,omitempty"`
	Data       Event      `json:"data"`
	// Participants is only set on DELETE snapshots and records who had access
	// to the event when it was removed.
	Participants []Participant `json:"participants,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// FieldChange is the change of one event field between two consecutive snapshots.
type FieldChange struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// ChangelogEntry is one snapshot annotated with its delta from the previous one.
type ChangelogEntry struct {
	Version       int           `json:"version"`
	ChangeType    ChangeType    `json:"change_type"`
	ChangedBy     string        `json:"changed_by"`
	Reason        string        `json:"reason,omitempty"`
	ChangedAt     time.Time     `json:"changed_at"`
	ChangedFields []string      `json:"changed_fields"`
	Changes       []FieldChange `json:"changes"`
}

// FieldDelta is the value of one field in two compared versions.
type FieldDelta struct {
	Field         string `json:"field"`
	Version1Value any    `json:"version_1"`
	Version2Value any    `json:"version_2"`
}

// Diff is the field-level comparison of two snapshots of the same event.
type Diff struct {
	EventID  string       `json:"event_id"`
	Version1 int          `json:"version_1"`
	Version2 int          `json:"version_2"`
	Changes  []FieldDelta `json:"changes"`
}

// ChangedFields returns the names of the fields in the diff.
func (d *Diff) ChangedFields() []string {
	names := make([]string, len(d.Changes))
	for i := range d.Changes {
		names[i] = d.Changes[i].Field
	}
	return names
}

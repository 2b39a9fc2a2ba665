package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverlaps(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		aStart   time.Time
		aEnd     time.Time
		bStart   time.Time
		bEnd     time.Time
		expected bool
	}{
		{
			name:   "back to back does not overlap",
			aStart: at(10, 0), aEnd: at(11, 0),
			bStart: at(11, 0), bEnd: at(12, 0),
			expected: false,
		},
		{
			name:   "partial overlap",
			aStart: at(10, 0), aEnd: at(11, 0),
			bStart: at(10, 30), bEnd: at(11, 30),
			expected: true,
		},
		{
			name:   "contained interval",
			aStart: at(9, 0), aEnd: at(12, 0),
			bStart: at(10, 0), bEnd: at(11, 0),
			expected: true,
		},
		{
			name:   "identical interval",
			aStart: at(10, 0), aEnd: at(11, 0),
			bStart: at(10, 0), bEnd: at(11, 0),
			expected: true,
		},
		{
			name:   "disjoint earlier",
			aStart: at(8, 0), aEnd: at(9, 0),
			bStart: at(10, 0), bEnd: at(11, 0),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
			assert.Equal(t, tt.expected, Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd), "overlap must be symmetric")
		})
	}
}

func TestCompareFields(t *testing.T) {
	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	base := EventFields{
		Title: "Standup",
		Start: start,
		End:   start.Add(time.Hour),
	}

	t.Run("identical fields have no changes", func(t *testing.T) {
		other := base
		assert.Empty(t, CompareFields(&base, &other))
	})

	t.Run("same instant in another location is unchanged", func(t *testing.T) {
		other := base
		other.Start = base.Start.In(time.FixedZone("UTC+2", 2*60*60))
		assert.Empty(t, CompareFields(&base, &other))
	})

	t.Run("reports changes in field order", func(t *testing.T) {
		other := base
		other.Location = "Room 4"
		other.Title = "Daily standup"
		other.RecurrencePattern = RecurrenceDaily

		changes := CompareFields(&base, &other)
		fields := make([]string, len(changes))
		for i := range changes {
			fields[i] = changes[i].Field
		}
		assert.Equal(t, []string{FieldTitle, FieldLocation, FieldRecurrencePattern}, fields)
		assert.Equal(t, "Standup", changes[0].Old)
		assert.Equal(t, "Daily standup", changes[0].New)
	})
}

func TestRecurrencePattern_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		pattern  RecurrencePattern
		expected bool
	}{
		{name: "none is valid", pattern: RecurrenceNone, expected: true},
		{name: "daily is valid", pattern: RecurrenceDaily, expected: true},
		{name: "yearly is valid", pattern: RecurrenceYearly, expected: true},
		{name: "lowercase is invalid", pattern: RecurrencePattern("weekly"), expected: false},
		{name: "ical rule is invalid", pattern: RecurrencePattern("FREQ=DAILY"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.pattern.IsValid())
		})
	}
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" editor ")
	assert.True(t, ok)
	assert.Equal(t, RoleEditor, role)

	_, ok = ParseRole("admin")
	assert.False(t, ok)
}

func TestListFilter_Normalize(t *testing.T) {
	f := ListFilter{Page: 0, PageSize: 500}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, MaxPageSize, f.PageSize)
	assert.Equal(t, 0, f.Offset())

	f = ListFilter{Page: 3}.Normalize()
	assert.Equal(t, DefaultPageSize, f.PageSize)
	assert.Equal(t, 20, f.Offset())
}

func TestNewPage(t *testing.T) {
	f := ListFilter{Page: 2, PageSize: 10}
	p := NewPage(nil, 21, f)
	assert.Equal(t, 3, p.NumPages)
	assert.Equal(t, 21, p.Count)
	assert.Equal(t, 2, p.CurrentPage)
	assert.NotNil(t, p.Results)

	empty := NewPage(nil, 0, f)
	assert.Equal(t, 0, empty.NumPages)
}

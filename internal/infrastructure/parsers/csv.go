package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVParser parses events from CSV format.
type CSVParser struct{}

// Parse reads CSV from the reader and returns parsed events.
// Expected columns: title, start_time, end_time, description, location,
// is_recurring, recurrence_pattern. Only the first three are required.
func (p *CSVParser) Parse(r io.Reader) ([]RawEvent, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	colIndex, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	return p.readRecords(reader, colIndex)
}

// readHeader reads and validates the CSV header row.
func (p *CSVParser) readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	requiredCols := []string{"title", "start_time", "end_time"}
	for _, col := range requiredCols {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	return colIndex, nil
}

// readRecords reads all data rows and converts them to RawEvents.
func (p *CSVParser) readRecords(reader *csv.Reader, colIndex map[string]int) ([]RawEvent, error) {
	events := []RawEvent{}
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		event, err := p.parseRecord(record, colIndex, lineNum)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, nil
}

func (p *CSVParser) parseRecord(record []string, colIndex map[string]int, lineNum int) (RawEvent, error) {
	event := RawEvent{
		Title:             getColumn(record, colIndex, "title"),
		Description:       getColumn(record, colIndex, "description"),
		StartTime:         getColumn(record, colIndex, "start_time"),
		EndTime:           getColumn(record, colIndex, "end_time"),
		Location:          getColumn(record, colIndex, "location"),
		RecurrencePattern: getColumn(record, colIndex, "recurrence_pattern"),
		LineNum:           lineNum,
	}

	recurring := getColumn(record, colIndex, "is_recurring")
	if recurring != "" {
		v, err := strconv.ParseBool(recurring)
		if err != nil {
			return RawEvent{}, fmt.Errorf("line %d: invalid is_recurring value %q: %w", lineNum, recurring, err)
		}
		event.IsRecurring = v
	}

	return event, nil
}

// getColumn safely retrieves a column value from a record.
func getColumn(record []string, colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(record) {
		return record[idx]
	}
	return ""
}

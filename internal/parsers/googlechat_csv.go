package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/lerio/luciko/internal/identity"
)

// The legacy Google Chat export is a flat CSV table dump: one row per
// message, quoted fields with embedded commas and newlines, sender as a
// bare email address, and no native message identifier at all. External
// ids are always the content-embedding fallback composite.

func detectGoogleChatCSV(in *Input) bool {
	if in.IsZip() || !strings.HasSuffix(strings.ToLower(in.FileName), ".csv") {
		return false
	}
	head := strings.ToLower(string(firstKB(in.Data)))
	line, _, _ := strings.Cut(head, "\n")
	return strings.Contains(line, "timestamp") && strings.Contains(line, "sender") &&
		strings.Contains(line, "text")
}

func ParseGoogleChatCSV(in *Input, opts Options) (*Result, error) {
	reader := csv.NewReader(strings.NewReader(string(in.Data)))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	headerIndex := make(map[string]int)
	for i, h := range header {
		headerIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"timestamp", "sender", "text"} {
		if _, ok := headerIndex[required]; !ok {
			return nil, fmt.Errorf("csv missing required column: %s", required)
		}
	}

	result := &Result{}
	lineNum := 1
	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.errorf("googlechat_csv: line %d: %v", lineNum, err)
			continue
		}

		rawTS := csvValue(record, headerIndex, "timestamp")
		ts, err := parseTimestamp(rawTS)
		if err != nil {
			result.errorf("googlechat_csv: line %d: %v", lineNum, err)
			continue
		}

		msg := newMessage(opts, SourceGoogleChatCSV)
		msg.Timestamp = ts
		msg.SenderID = opts.People.Resolve(csvValue(record, headerIndex, "sender"))
		msg.Content = csvValue(record, headerIndex, "text")

		if !keepMessage(&msg) {
			continue
		}
		msg.ExternalID = identity.FallbackExternalID(
			SourceGoogleChatCSV, msg.Timestamp, msg.SenderID, msg.Content, nil)
		result.Messages = append(result.Messages, msg)
	}

	result.sortByTimestamp()
	return result, nil
}

func csvValue(record []string, headerIndex map[string]int, column string) string {
	if idx, ok := headerIndex[column]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

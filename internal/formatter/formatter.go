// package formatter renders credential info and login history as plain text, JSON, CSV or Markdown
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/qmc/internal/models"
	"github.com/desertthunder/qmc/internal/shared"
)

// Format names an output format.
type Format string

const (
	Plain    Format = "plain"
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
)

// ParseFormat accepts plain/text, json, csv and markdown/md.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "plain", "text", "txt":
		return Plain, nil
	case "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (use plain, json, csv or markdown)", shared.ErrInvalidFlag, name)
	}
}

// Field is one credential key and its display value.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Fields flattens a credential info object into fields sorted by key.
func Fields(info map[string]any) []Field {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Key: k, Value: FormatValue(info[k])})
	}
	return fields
}

// FormatValue renders a decoded JSON value for display.
//
// Whole numbers print without exponent (musicid 123456789 stays 123456789), nested values print as compact JSON.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

// ExportToText renders fields as "key: value" lines
func ExportToText(fields []Field) []byte {
	var buf bytes.Buffer

	width := 0
	for _, f := range fields {
		width = max(width, len(f.Key))
	}

	for _, f := range fields {
		fmt.Fprintf(&buf, "%-*s  %s\n", width+1, f.Key+":", f.Value)
	}

	return buf.Bytes()
}

// ExportToCSV renders fields with columns: Key, Value
func ExportToCSV(fields []Field) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Key", "Value"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, f := range fields {
		if err := writer.Write([]string{f.Key, f.Value}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders fields as a two-column table under a heading
func ExportToMarkdown(title string, fields []Field) []byte {
	var buf bytes.Buffer

	if title != "" {
		fmt.Fprintf(&buf, "# %s\n\n", title)
	}

	buf.WriteString("| Key | Value |\n")
	buf.WriteString("| --- | --- |\n")
	for _, f := range fields {
		fmt.Fprintf(&buf, "| %s | %s |\n", escapeCell(f.Key), escapeCell(f.Value))
	}

	return buf.Bytes()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// ExportCredentialInfo renders a credential info object in the given format.
func ExportCredentialInfo(info map[string]any, format Format) ([]byte, error) {
	switch format {
	case JSON:
		return shared.MarshalJSON(info, true)
	case CSV:
		return ExportToCSV(Fields(info))
	case Markdown:
		return ExportToMarkdown("Credential", Fields(info)), nil
	case Plain:
		return ExportToText(Fields(info)), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// ExportHistory renders login attempts in the given format.
func ExportHistory(attempts []*models.LoginAttempt, format Format) ([]byte, error) {
	switch format {
	case JSON:
		if attempts == nil {
			attempts = []*models.LoginAttempt{}
		}
		return shared.MarshalJSON(attempts, true)
	case CSV:
		return historyToCSV(attempts)
	case Markdown:
		return historyToMarkdown(attempts), nil
	case Plain:
		return historyToText(attempts), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

func historyToText(attempts []*models.LoginAttempt) []byte {
	var buf bytes.Buffer

	if len(attempts) == 0 {
		buf.WriteString("No login attempts recorded.\n")
		return buf.Bytes()
	}

	for _, a := range attempts {
		fmt.Fprintf(&buf, "#%-4d %s  %-2s  %-13s %8s", a.Sequence(), a.CreatedAt().Local().Format(time.DateTime),
			a.Method(), a.Status(), FormatDuration(a.Duration()))
		if a.Message() != "" {
			fmt.Fprintf(&buf, "  %s", a.Message())
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

func historyToCSV(attempts []*models.LoginAttempt) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "ID", "Method", "Status", "Ticks", "Started", "Duration", "Message"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, a := range attempts {
		record := []string{
			strconv.Itoa(a.Sequence()),
			a.ID(),
			a.Method(),
			a.Status(),
			strconv.Itoa(a.Ticks()),
			a.CreatedAt().UTC().Format(time.RFC3339),
			FormatDuration(a.Duration()),
			a.Message(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

func historyToMarkdown(attempts []*models.LoginAttempt) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Login history\n\n")
	fmt.Fprintf(&buf, "**Attempts**: %d\n\n", len(attempts))

	if len(attempts) == 0 {
		return buf.Bytes()
	}

	buf.WriteString("| # | Started | Method | Status | Duration | Message |\n")
	buf.WriteString("| --- | --- | --- | --- | --- | --- |\n")
	for _, a := range attempts {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s | %s |\n",
			a.Sequence(), a.CreatedAt().UTC().Format(time.RFC3339), a.Method(), a.Status(),
			FormatDuration(a.Duration()), escapeCell(a.Message()))
	}

	return buf.Bytes()
}

// FormatDuration renders d as m:ss, or h:mm:ss past an hour.
func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	if total < 0 {
		total = 0
	}
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// WriteExport writes data to path, or to stdout when path is empty or "-".
func WriteExport(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

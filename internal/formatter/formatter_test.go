package formatter

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/qmc/internal/models"
	"github.com/desertthunder/qmc/internal/shared"
	th "github.com/desertthunder/qmc/internal/testing"
)

func sampleInfo() map[string]any {
	return map[string]any{
		"musicid":      float64(123456789),
		"nick":         "小明",
		"refresh_key":  "abc|def",
		"expired":      false,
		"extra_fields": map[string]any{"a": float64(1)},
		"unionid":      nil,
	}
}

func TestFields(t *testing.T) {
	fields := Fields(sampleInfo())

	wantKeys := []string{"expired", "extra_fields", "musicid", "nick", "refresh_key", "unionid"}
	if len(fields) != len(wantKeys) {
		t.Fatalf("expected %d fields, got %d", len(wantKeys), len(fields))
	}
	for i, k := range wantKeys {
		if fields[i].Key != k {
			t.Errorf("field %d: expected key %s, got %s", i, k, fields[i].Key)
		}
	}

	values := map[string]string{}
	for _, f := range fields {
		values[f.Key] = f.Value
	}
	if values["musicid"] != "123456789" {
		t.Errorf("expected whole number without exponent, got %s", values["musicid"])
	}
	if values["expired"] != "false" {
		t.Errorf("expected false, got %s", values["expired"])
	}
	if values["extra_fields"] != `{"a":1}` {
		t.Errorf("expected compact JSON, got %s", values["extra_fields"])
	}
	if values["unionid"] != "null" {
		t.Errorf("expected null, got %s", values["unionid"])
	}
}

func TestParseFormat(t *testing.T) {
	tt := []struct {
		in   string
		want Format
	}{
		{"", Plain},
		{"text", Plain},
		{"JSON", JSON},
		{"csv", CSV},
		{"md", Markdown},
		{"markdown", Markdown},
	}
	for _, tc := range tt {
		got, err := ParseFormat(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseFormat(%q) = %s, %v; want %s", tc.in, got, err, tc.want)
		}
	}

	if _, err := ParseFormat("yaml"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToText", func(t *testing.T) {
		output := string(ExportToText([]Field{{"nick", "小明"}, {"musicid", "1"}}))

		if !strings.Contains(output, "nick:     小明") {
			t.Errorf("expected aligned nick line, got: %q", output)
		}
		if strings.Count(output, "\n") != 2 {
			t.Errorf("expected one line per field, got: %q", output)
		}
	})

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(Fields(sampleInfo()))
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Key,Value\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "musicid,123456789") {
			t.Errorf("CSV missing musicid row")
		}
		if !strings.Contains(output, `extra_fields,"{""a"":1}"`) {
			t.Errorf("CSV should quote JSON values, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		output := string(ExportToMarkdown("Credential", Fields(sampleInfo())))

		if !strings.HasPrefix(output, "# Credential\n\n| Key | Value |") {
			t.Errorf("unexpected markdown header: %s", output)
		}
		if !strings.Contains(output, `| refresh_key | abc\|def |`) {
			t.Errorf("expected escaped pipe, got: %s", output)
		}
	})

	t.Run("ExportCredentialInfo JSON", func(t *testing.T) {
		data, err := ExportCredentialInfo(sampleInfo(), JSON)
		if err != nil {
			t.Fatalf("ExportCredentialInfo failed: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if decoded["nick"] != "小明" {
			t.Errorf("expected nick to survive, got %v", decoded["nick"])
		}
	})

	t.Run("ExportCredentialInfo Unknown Format", func(t *testing.T) {
		if _, err := ExportCredentialInfo(sampleInfo(), Format("yaml")); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestExportHistory(t *testing.T) {
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ok := models.NewLoginAttempt("a1", "qq", started)
	ok.SetSequence(2)
	ok.Record("logged_in", "", 3, started.Add(9*time.Second), true)

	failed := models.NewLoginAttempt("a2", "wx", started)
	failed.SetSequence(1)
	failed.Record("failed", "HTTP error! status: 500", 0, started.Add(time.Second), true)

	attempts := []*models.LoginAttempt{ok, failed}

	t.Run("Plain", func(t *testing.T) {
		data, err := ExportHistory(attempts, Plain)
		if err != nil {
			t.Fatalf("ExportHistory failed: %v", err)
		}
		output := string(data)
		if !strings.Contains(output, "#2") || !strings.Contains(output, "logged_in") || !strings.Contains(output, "0:09") {
			t.Errorf("plain history missing fields: %s", output)
		}
		if !strings.Contains(output, "HTTP error! status: 500") {
			t.Errorf("plain history missing failure message: %s", output)
		}
	})

	t.Run("Plain Empty", func(t *testing.T) {
		data, _ := ExportHistory(nil, Plain)
		if !strings.Contains(string(data), "No login attempts") {
			t.Errorf("expected empty notice, got %q", data)
		}
	})

	t.Run("CSV", func(t *testing.T) {
		data, err := ExportHistory(attempts, CSV)
		if err != nil {
			t.Fatalf("ExportHistory failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
		}
		if lines[1] != "2,a1,qq,logged_in,3,2025-03-01T12:00:00Z,0:09," {
			t.Errorf("unexpected row: %s", lines[1])
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		data, _ := ExportHistory(attempts, Markdown)
		if !strings.Contains(string(data), "**Attempts**: 2") {
			t.Errorf("markdown missing count: %s", data)
		}
	})

	t.Run("JSON Empty Is Array", func(t *testing.T) {
		data, err := ExportHistory(nil, JSON)
		if err != nil {
			t.Fatalf("ExportHistory failed: %v", err)
		}
		if string(data) != "[]" {
			t.Errorf("expected empty array, got %s", data)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := ExportHistory(attempts, JSON)
		if err != nil {
			t.Fatalf("ExportHistory failed: %v", err)
		}
		var decoded []map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if decoded[0]["status"] != "logged_in" || decoded[1]["message"] != "HTTP error! status: 500" {
			t.Errorf("unexpected JSON history: %v", decoded)
		}
	})
}

func TestFormatDuration(t *testing.T) {
	tt := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{9 * time.Second, "0:09"},
		{3*time.Minute + 5*time.Second, "3:05"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
		{-time.Second, "0:00"},
	}
	for _, tc := range tt {
		if got := FormatDuration(tc.in); got != tc.want {
			t.Errorf("FormatDuration(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestWriteExport(t *testing.T) {
	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "info.csv")
		if err := WriteExport(path, []byte("Key,Value\n")); err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got := th.MustReadFile(t, path); got != "Key,Value\n" {
			t.Errorf("unexpected file content %q", got)
		}
	})

	t.Run("Missing Directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nope", "info.csv")
		if err := WriteExport(path, nil); err == nil {
			t.Error("expected error for missing directory")
		}
		if _, err := os.Stat(path); err == nil {
			t.Error("file should not exist")
		}
	})
}

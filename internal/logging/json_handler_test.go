package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func TestJSONHandlerShortKeysAndRedaction(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl, false))

	logger.Info("pim login",
		String("password", "hunter2"),
		String("cookie", ""),
		Duration("elapsed", 1234567*time.Microsecond),
		String(FieldItemID, "B0ABCDEFGH"),
	)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if record["level"] != "info" || record["msg"] != "pim login" {
		t.Fatalf("unexpected level/msg: %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("missing ts key: %v", record)
	}
	if record["password"] != "[redacted]" {
		t.Fatalf("password = %v, want redacted", record["password"])
	}
	if record["cookie"] != "" {
		t.Fatalf("empty cookie should stay empty, got %v", record["cookie"])
	}
	if record["elapsed"] != "1.235s" {
		t.Fatalf("elapsed = %v, want 1.235s", record["elapsed"])
	}
	if record[FieldItemID] != "B0ABCDEFGH" {
		t.Fatalf("item id = %v", record[FieldItemID])
	}
}

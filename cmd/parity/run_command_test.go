package main

import (
	"os"
	"strings"
	"testing"

	"listingparity/internal/testsupport"
)

func TestRunCommandWritesReportAndHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	first := env.addItem("B000000001", product("Kettle", "Fast", "Steel"), product("kettle", "fast", "steel"))
	second := env.addItem("B000000002", product("Toaster", "Two slots"), product("Toaster", "Crumb tray"))
	testsupport.WriteWorklist(t, env.cfg.Paths.WorklistPath, []string{"amazon_url", "icepim_url"}, first, second)

	out, _, err := runCLI(t, env, "run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "[1/2] B000000001")
	requireContains(t, out, "[2/2] B000000002")
	requireContains(t, out, "2/2 processed, 1 mismatched")
	requireContains(t, out, "Report: "+env.cfg.Paths.ReportPath)
	// Only the mismatching row is tabulated by default.
	if strings.Count(out, "B000000002") < 2 || strings.Count(out, "B000000001") != 1 {
		t.Fatalf("unexpected table rows:\n%s", out)
	}

	rows := testsupport.ReadCSV(t, env.cfg.Paths.ReportPath)
	if len(rows) != 3 {
		t.Fatalf("report has %d lines, want 3", len(rows))
	}

	out, _, err = runCLI(t, env, "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "completed")
	requireContains(t, out, "2/2")
}

func TestRunCommandFlagOverrides(t *testing.T) {
	env := setupCLITestEnv(t)
	row := env.addItem("B000000003", product("Lamp", "Warm"), product("Lamp", "Warm"))
	alt := env.cfg.Paths.WorklistPath + ".alt.csv"
	testsupport.WriteWorklist(t, alt, []string{"amazon_url", "icepim_url"}, row)
	reportPath := env.cfg.Paths.ReportPath + ".alt.csv"

	out, _, err := runCLI(t, env, "run", "--worklist", alt, "--report", reportPath, "--all")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "B000000003")
	if _, err := os.Stat(reportPath); err != nil {
		t.Fatalf("expected report at override path: %v", err)
	}
	if _, err := os.Stat(env.cfg.Paths.ReportPath); !os.IsNotExist(err) {
		t.Fatalf("configured report path should be untouched, stat err = %v", err)
	}
}

func TestRunCommandSetupFailure(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "run", "--quiet")
	if err == nil {
		t.Fatal("expected missing work list to fail the run")
	}
	if _, statErr := os.Stat(env.cfg.Paths.ReportPath); !os.IsNotExist(statErr) {
		t.Fatalf("report should not exist after setup failure, stat err = %v", statErr)
	}
}

func TestHistoryShowAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	row := env.addItem("B000000004", product("Fan", "Quiet"), product("Fan", "Loud"))
	testsupport.WriteWorklist(t, env.cfg.Paths.WorklistPath, []string{"amazon_url", "icepim_url"}, row)

	if _, _, err := runCLI(t, env, "run", "--quiet"); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, _, err := runCLI(t, env, "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	var runPrefix string
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "completed") {
			continue
		}
		cells := strings.Split(line, "│")
		if len(cells) > 2 {
			runPrefix = strings.TrimSpace(cells[1])
		}
		break
	}
	if runPrefix == "" {
		t.Fatalf("could not find run id in:\n%s", out)
	}

	out, _, err = runCLI(t, env, "history", "show", runPrefix, "--mismatches")
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, "Status:     completed")
	requireContains(t, out, "B000000004")
	requireContains(t, out, "DIFFER")

	out, _, err = runCLI(t, env, "history", "clear")
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	requireContains(t, out, "Removed 1 run(s)")

	if _, _, err := runCLI(t, env, "history", "show", runPrefix); err == nil {
		t.Fatal("expected unknown run after clear")
	}
}

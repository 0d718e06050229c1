package main

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func setEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("STORE_BACKEND", "file")
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ROLE_POLICY_FILE", "")
	t.Setenv("PUBLIC_BASE_URL", "https://relief.example.org")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"ledgerctl"}, args...))
	return out.String(), err
}

func TestAddUserPersistsAcrossRuns(t *testing.T) {
	setEnv(t)

	out, err := run(t, "add-user", "--username", "root", "--password", "pw", "--role", "admin")
	if err != nil {
		t.Fatalf("add-user: %v", err)
	}
	if !strings.Contains(out, "user root created with role admin") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := run(t, "add-user", "--username", "root", "--password", "other"); err == nil {
		t.Fatalf("expected duplicate user to fail")
	}
}

func TestAddUserRequiresFlags(t *testing.T) {
	setEnv(t)
	if _, err := run(t, "add-user", "--username", "root"); err == nil {
		t.Fatalf("expected missing password to fail")
	}
}

func TestStatsOnEmptyLedger(t *testing.T) {
	setEnv(t)
	out, err := run(t, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "donations") || !strings.Contains(out, "dispatches") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestVerifyUnknownRecord(t *testing.T) {
	setEnv(t)
	if _, err := run(t, "verify", "0xmissing"); err == nil {
		t.Fatalf("expected unknown record to fail")
	}
	if _, err := run(t, "verify"); err == nil {
		t.Fatalf("expected missing id to fail")
	}
}

func TestAuditAndFeedbackOnEmptyStores(t *testing.T) {
	setEnv(t)
	out, err := run(t, "audit")
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if !strings.Contains(out, `"donations": []`) {
		t.Fatalf("audit output %q", out)
	}
	out, err = run(t, "feedback")
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if !strings.HasPrefix(out, "ID") {
		t.Fatalf("feedback output %q", out)
	}
}

func TestExportWritesArchive(t *testing.T) {
	setEnv(t)
	out := filepath.Join(t.TempDir(), "export.zip")
	msg, err := run(t, "export", "--output", out)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(msg, "exported 0 donations") {
		t.Fatalf("unexpected output %q", msg)
	}
	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 2 || zr.File[1].Name != "feedback.json" {
		t.Fatalf("unexpected entries %v", zr.File)
	}
}

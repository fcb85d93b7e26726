package admin

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCommand executes the CLI with the given args. A non-empty stdin is
// piped in, which is how the create command receives its password under
// test; go test never runs on a terminal.
func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	if stdin != "" {
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("os.Pipe() error = %v", err)
		}
		if _, err := w.WriteString(stdin); err != nil {
			t.Fatalf("writing stdin: %v", err)
		}
		w.Close()

		old := os.Stdin
		os.Stdin = r
		t.Cleanup(func() { os.Stdin = old })
	}

	cmd := RootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestUserLifecycle(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "admin-test.db")

	out, err := runCommand(t, "Val1d!Pass\n", "user", "create", "alice@test.com", "alice", "--db", dbPath)
	if err != nil {
		t.Fatalf("user create error = %v (output: %s)", err, out)
	}
	if !strings.Contains(out, "created user alice") {
		t.Errorf("create output = %q, want it to name the user", out)
	}

	out, err = runCommand(t, "", "user", "deactivate", "alice@test.com", "--db", dbPath)
	if err != nil {
		t.Fatalf("user deactivate error = %v", err)
	}
	if !strings.Contains(out, "now inactive") {
		t.Errorf("deactivate output = %q, want state change", out)
	}

	out, err = runCommand(t, "", "user", "deactivate", "alice@test.com", "--db", dbPath)
	if err != nil {
		t.Fatalf("repeat deactivate error = %v", err)
	}
	if !strings.Contains(out, "already inactive") {
		t.Errorf("repeat deactivate output = %q, want no-op notice", out)
	}

	out, err = runCommand(t, "", "user", "activate", "alice@test.com", "--db", dbPath)
	if err != nil {
		t.Fatalf("user activate error = %v", err)
	}
	if !strings.Contains(out, "now active") {
		t.Errorf("activate output = %q, want state change", out)
	}

	out, err = runCommand(t, "", "user", "list", "--db", dbPath)
	if err != nil {
		t.Fatalf("user list error = %v", err)
	}
	if !strings.Contains(out, "alice@test.com") {
		t.Errorf("list output = %q, want the account listed", out)
	}
}

func TestUserCreate_RejectsWeakPassword(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "admin-test.db")

	_, err := runCommand(t, "alllowercase\n", "user", "create", "alice@test.com", "alice", "--db", dbPath)
	if err == nil {
		t.Fatal("user create with weak password succeeded, want validation error")
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "admin-test.db")

	if _, err := runCommand(t, "Val1d!Pass\n", "user", "create", "alice@test.com", "alice", "--db", dbPath); err != nil {
		t.Fatalf("first create error = %v", err)
	}
	_, err := runCommand(t, "Val1d!Pass\n", "user", "create", "alice@test.com", "other", "--db", dbPath)
	if err == nil {
		t.Fatal("duplicate create succeeded, want conflict")
	}
}

func TestUserActivate_UnknownAccount(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "admin-test.db")

	_, err := runCommand(t, "", "user", "activate", "nobody@test.com", "--db", dbPath)
	if err == nil {
		t.Fatal("activate of unknown account succeeded, want not found")
	}
}

//go:build linux

package interact

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rsalesc/go-timeit/runner"
	"github.com/rsalesc/go-timeit/runner/timeit"
)

func TestMain(m *testing.M) {
	timeit.Init()
	os.Exit(m.Run())
}

func shSide(script string) Side {
	return Side{Runner: &timeit.Runner{
		Args:         []string{"/bin/sh", "-c", script},
		Limits:       runner.Limits{WallTime: 8 * time.Second},
		PollInterval: 20 * time.Millisecond,
	}}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestExchange_PingPong(t *testing.T) {
	dir := t.TempDir()
	merged := filepath.Join(dir, "merged.txt")
	capture := filepath.Join(dir, "solution.txt")
	answer := filepath.Join(dir, "answer.txt")

	sol := shSide(`echo hello; read r; echo "$r" >&2`)
	sol.Runner.Stderr = answer
	sol.Capture = capture

	e := &Exchange{
		Interactor: shSide(`read q; echo "roger $q"`),
		Solution:   sol,
		Merged:     merged,
	}
	p, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.Interactor.Status != 0 {
		t.Errorf("interactor status = %v, want clean", p.Interactor.Status)
	}
	if p.Solution.Status != 0 {
		t.Errorf("solution status = %v, want clean", p.Solution.Status)
	}
	if got := readFile(t, answer); got != "roger hello\n" {
		t.Errorf("answer = %q, want %q", got, "roger hello\n")
	}
	if got := readFile(t, capture); got != "hello\n" {
		t.Errorf("capture = %q, want %q", got, "hello\n")
	}
	want := "INTERACTOR:\nSOLUTION:\nSOLUTION:hello\nINTERACTOR:roger hello\n"
	if got := readFile(t, merged); got != want {
		t.Errorf("merged = %q, want %q", got, want)
	}
}

func TestExchange_NoTranscript(t *testing.T) {
	dir := t.TempDir()
	answer := filepath.Join(dir, "answer.txt")

	in := shSide(`read q; echo "$q" >&2`)
	in.Runner.Stderr = answer

	e := &Exchange{
		Interactor: in,
		Solution:   shSide(`echo ping`),
	}
	p, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.Interactor.Status != 0 || p.Solution.Status != 0 {
		t.Fatalf("statuses = %v / %v, want clean", p.Interactor.Status, p.Solution.Status)
	}
	if got := readFile(t, answer); got != "ping\n" {
		t.Errorf("answer = %q, want %q", got, "ping\n")
	}
}

func TestExchange_CustomPrefixes(t *testing.T) {
	dir := t.TempDir()
	merged := filepath.Join(dir, "merged.txt")

	e := &Exchange{
		Interactor: shSide(`read q`),
		Solution:   shSide(`echo hi`),
		Merged:     merged,
	}
	e.Interactor.Prefix = "JUDGE:"
	e.Solution.Prefix = "TEAM:"

	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "JUDGE:\nTEAM:\nTEAM:hi\n"
	if got := readFile(t, merged); got != want {
		t.Errorf("merged = %q, want %q", got, want)
	}
}

func TestExchange_StalledProtocol(t *testing.T) {
	dir := t.TempDir()
	merged := filepath.Join(dir, "merged.txt")

	// The interactor never answers, so the solution hangs on its read
	// and both sides run into their wall clocks.
	in := shSide(`sleep 30`)
	in.Runner.Limits.WallTime = 300 * time.Millisecond
	sol := shSide(`echo hi; read r`)
	sol.Runner.Limits.WallTime = 300 * time.Millisecond

	e := &Exchange{Interactor: in, Solution: sol, Merged: merged}
	p, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !p.Interactor.Status.Has(runner.StatusWT) {
		t.Errorf("interactor status = %v, want wall timeout", p.Interactor.Status)
	}
	if !p.Solution.Status.Has(runner.StatusWT) {
		t.Errorf("solution status = %v, want wall timeout", p.Solution.Status)
	}
	want := "INTERACTOR:\nSOLUTION:\nSOLUTION:hi\n"
	if got := readFile(t, merged); got != want {
		t.Errorf("merged = %q, want %q", got, want)
	}
}

func TestExchange_BrokenSideCancelsPeer(t *testing.T) {
	sol := Side{Runner: &timeit.Runner{
		Args:         []string{"/nonexistent-interact-binary"},
		PollInterval: 20 * time.Millisecond,
	}}
	// sleep ignores the severed stream, so only cancellation ends it
	p, err := (&Exchange{
		Interactor: shSide(`sleep 30`),
		Solution:   sol,
	}).Run(context.Background())
	if err == nil {
		t.Fatal("Run returned nil error for a broken solution")
	}
	if !strings.Contains(err.Error(), "solution") {
		t.Errorf("error = %v, want it to name the solution side", err)
	}
	if !p.Interactor.Status.Has(runner.StatusTE) {
		t.Errorf("interactor status = %v, want externally terminated", p.Interactor.Status)
	}
}

func TestExchange_MissingRunner(t *testing.T) {
	_, err := (&Exchange{}).Run(context.Background())
	if err == nil {
		t.Fatal("Run accepted an empty exchange")
	}
}

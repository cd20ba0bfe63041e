package pipe

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func waitDone(t *testing.T, d *Duplicator) {
	t.Helper()
	select {
	case <-d.Done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for Done channel")
	}
}

func TestDuplicator_FanOut(t *testing.T) {
	var a, b bytes.Buffer
	d, err := New(Dest{W: &a}, Dest{W: &b})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	input := strings.Repeat("0123456789", 1000)
	n, err := d.W.Write([]byte(input))
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if n != len(input) {
		t.Errorf("Write bytes = %d, want %d", n, len(input))
	}
	d.W.Close()
	waitDone(t, d)

	if got := a.String(); got != input {
		t.Errorf("first destination differs: got %d bytes, want %d", len(got), len(input))
	}
	if got := b.String(); got != input {
		t.Errorf("second destination differs: got %d bytes, want %d", len(got), len(input))
	}
}

func TestDuplicator_ImmediateEOF(t *testing.T) {
	var a bytes.Buffer
	d, err := New(Dest{W: &a})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	d.W.Close()
	waitDone(t, d)

	if a.Len() != 0 {
		t.Errorf("destination length = %d, want 0", a.Len())
	}
}

func TestDuplicator_Prefix(t *testing.T) {
	const prefix = "[out] "
	var tagged bytes.Buffer
	d, err := New(Dest{W: &tagged, Prefix: []byte(prefix)})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	input := strings.Repeat("9182736450", 2000)
	if _, err := d.W.Write([]byte(input)); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	d.W.Close()
	waitDone(t, d)

	got := tagged.String()
	if !strings.HasPrefix(got, prefix) {
		t.Errorf("tagged output does not start with prefix %q", prefix)
	}
	// The payload must survive exactly, however the relay chunked it.
	if stripped := strings.ReplaceAll(got, prefix, ""); stripped != input {
		t.Errorf("stripped payload differs: got %d bytes, want %d", len(stripped), len(input))
	}
}

func TestDuplicator_Cap(t *testing.T) {
	var capped, full bytes.Buffer
	d, err := New(Dest{W: &capped, Max: 5}, Dest{W: &full})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	input := "toolonginput"
	if _, err := d.W.Write([]byte(input)); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	d.W.Close()
	waitDone(t, d)

	if got := capped.String(); got != input[:5] {
		t.Errorf("capped destination = %q, want %q", got, input[:5])
	}
	if got := full.String(); got != input {
		t.Errorf("uncapped destination = %q, want %q", got, input)
	}
}

func TestDuplicator_DoneCloses(t *testing.T) {
	d, err := New()
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	go func() {
		_, _ = d.W.Write([]byte("test"))
		d.W.Close()
	}()
	waitDone(t, d)
}

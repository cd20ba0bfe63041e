package transcript

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestByte(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		wantTranscript string
	}{
		{
			name:           "Empty",
			input:          "",
			wantTranscript: "",
		},
		{
			name:           "SingleLine",
			input:          "hello\n",
			wantTranscript: ">hello\n",
		},
		{
			name:           "UnterminatedTail",
			input:          "ab\ncd",
			wantTranscript: ">ab\n>cd",
		},
		{
			name:           "BlankLines",
			input:          "\n\n",
			wantTranscript: ">\n>\n",
		},
		{
			name:           "Binary",
			input:          "a\x00\xffb",
			wantTranscript: ">a\x00\xffb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, tr bytes.Buffer
			if err := Byte(&out, &tr, strings.NewReader(tt.input), '>'); err != nil {
				t.Fatalf("Byte error: %v", err)
			}
			if got := out.String(); got != tt.input {
				t.Errorf("passthrough = %q, want %q", got, tt.input)
			}
			if got := tr.String(); got != tt.wantTranscript {
				t.Errorf("transcript = %q, want %q", got, tt.wantTranscript)
			}
		})
	}
}

func TestLine(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		wantTranscript string
	}{
		{
			name:           "Empty",
			input:          "",
			wantTranscript: "",
		},
		{
			name:           "TwoLines",
			input:          "hello\nworld\n",
			wantTranscript: "<hello\n<world\n",
		},
		{
			name:           "UnterminatedTail",
			input:          "ab\ncd",
			wantTranscript: "<ab\n<cd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, tr bytes.Buffer
			if err := Line(&out, &tr, strings.NewReader(tt.input), '<'); err != nil {
				t.Fatalf("Line error: %v", err)
			}
			if got := out.String(); got != tt.input {
				t.Errorf("passthrough = %q, want %q", got, tt.input)
			}
			if got := tr.String(); got != tt.wantTranscript {
				t.Errorf("transcript = %q, want %q", got, tt.wantTranscript)
			}
		})
	}
}

func TestOpenAppends(t *testing.T) {
	path := t.TempDir() + "/merged.log"

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if err := Line(&bytes.Buffer{}, f, strings.NewReader("one\n"), '>'); err != nil {
		t.Fatalf("Line error: %v", err)
	}
	f.Close()

	f, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	if err := Line(&bytes.Buffer{}, f, strings.NewReader("two\n"), '<'); err != nil {
		t.Fatalf("Line error: %v", err)
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	want := ">one\n<two\n"
	if got := string(data); got != want {
		t.Errorf("transcript = %q, want %q", got, want)
	}
}

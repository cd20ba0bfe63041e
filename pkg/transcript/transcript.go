// Package transcript implements the interactive-exchange filters: each
// forwards its input to the output untouched while appending a tagged
// copy to a shared transcript file, so a two-program exchange can be
// replayed from one merged log without perturbing the exchange itself.
package transcript

import (
	"bufio"
	"io"
	"os"
)

// Open opens (creating if needed) a transcript for appending. Append mode
// lets the two sides of an exchange share one transcript: each tagged
// unit is issued as a single write.
func Open(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
}

// Byte relays src to out byte by byte while appending a tagged copy to
// transcript, inserting the tag at line starts. Binary and partial-line
// safe; every unit is written unbuffered so transcript ordering stays
// causally meaningful. Returns nil on src EOF.
func Byte(out, transcript io.Writer, src io.Reader, tag byte) error {
	br := bufio.NewReader(src)
	newLine := true
	var one [1]byte
	for {
		c, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		one[0] = c
		if _, err := out.Write(one[:]); err != nil {
			return err
		}
		if newLine {
			if _, err := transcript.Write([]byte{tag, c}); err != nil {
				return err
			}
		} else if _, err := transcript.Write(one[:]); err != nil {
			return err
		}
		newLine = c == '\n'
	}
}

// Line relays src to out line by line while appending a tagged copy of
// each line to transcript. The transcript write is issued first so the
// merged log orders a message before any reply it provokes. A trailing
// unterminated line is still relayed and tagged. Returns nil on src EOF.
func Line(out, transcript io.Writer, src io.Reader, tag byte) error {
	br := bufio.NewReader(src)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			tagged := make([]byte, 0, len(line)+1)
			tagged = append(tagged, tag)
			tagged = append(tagged, line...)
			if _, werr := transcript.Write(tagged); werr != nil {
				return werr
			}
			if _, werr := io.WriteString(out, line); werr != nil {
				return werr
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

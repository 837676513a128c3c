package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errPassphraseMismatch = errors.New("passphrases do not match")

// lineReader owns the terminal input. A single goroutine reads lines ahead
// and hands each one to exactly one caller, so a prompt abandoned on ctx
// never swallows the line meant for the next one.
type lineReader struct {
	src   *bufio.Reader
	once  sync.Once
	lines chan lineResult
}

type lineResult struct {
	line string
	err  error
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{src: bufio.NewReader(r), lines: make(chan lineResult)}
}

func (l *lineReader) pump() {
	defer close(l.lines)
	for {
		line, err := l.src.ReadString('\n')
		l.lines <- lineResult{line: line, err: err}
		if err != nil {
			return
		}
	}
}

// ReadLine returns the next line including its newline. A final line
// without a newline comes with io.EOF.
func (l *lineReader) ReadLine(ctx context.Context) (string, error) {
	l.once.Do(func() { go l.pump() })
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r, ok := <-l.lines:
		if !ok {
			return "", io.EOF
		}
		return r.line, r.err
	}
}

// GetSimpleText prints a prompt to w and reads a single line of input from
// lines. If EOF occurs after some input was read, the partial line is
// returned.
func GetSimpleText(ctx context.Context, lines *lineReader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := lines.ReadLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetPassword reads a passphrase from the terminal without echo. The caller
// should wipe the result when done.
func GetPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// GetNewPassword asks for a passphrase twice and returns it when both
// entries match.
func GetNewPassword(w io.Writer) ([]byte, error) {
	first, err := getPassword(w, "New wallet passphrase")
	if err != nil {
		return nil, err
	}
	second, err := getPassword(w, "Repeat passphrase")
	if err != nil {
		return nil, err
	}
	if string(first) != string(second) {
		return nil, errPassphraseMismatch
	}
	return first, nil
}

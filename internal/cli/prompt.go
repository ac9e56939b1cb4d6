package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the user for input.
type Prompter interface {
	// Password reads a line without echoing it.
	Password(prompt string) (string, error)
	// Line reads a visible line.
	Line(prompt string) (string, error)
}

// TerminalPrompter reads from a file, hiding password input when the file
// is a terminal. Non-terminal input (pipes, redirects) is read line by line.
type TerminalPrompter struct {
	in     *os.File
	reader *bufio.Reader
	out    io.Writer
}

// NewTerminalPrompter returns a prompter reading from in and writing prompts
// to out.
func NewTerminalPrompter(in *os.File, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, reader: bufio.NewReader(in), out: out}
}

// Password implements Prompter.
func (p *TerminalPrompter) Password(prompt string) (string, error) {
	fd := int(p.in.Fd())
	if !term.IsTerminal(fd) {
		return p.Line(prompt)
	}

	fmt.Fprint(p.out, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}

// Line implements Prompter.
func (p *TerminalPrompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	return readLine(p.reader)
}

// readLine returns the next line without its terminator. A final line
// without a newline is accepted; EOF before any input is an error.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

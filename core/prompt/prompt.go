// Package prompt asks the user a question on the console and reads one line.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

const WaitQuestion = `(Hit the "return" key when ready to proceed)`

type Prompter interface {
	Ask(ctx context.Context, question string) (string, error)
}

type LinePrompter struct {
	mu     sync.Mutex
	reader *bufio.Reader
	writer io.Writer

	start   sync.Once
	lines   chan string
	readErr error
}

func New(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{reader: bufio.NewReader(in), writer: out, lines: make(chan string)}
}

// readLoop is the only goroutine touching reader. A line read while no Ask
// is waiting is held for the next Ask. lines is closed at end of input.
func (prompter *LinePrompter) readLoop() {
	defer close(prompter.lines)
	for {
		line, err := prompter.reader.ReadString('\n')
		if line != "" || err == nil {
			prompter.lines <- strings.TrimRight(line, "\r\n")
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				prompter.readErr = err
			}
			return
		}
	}
}

// Ask writes question and waits for a line. A closed input counts as an
// empty answer so non-interactive runs do not hang. Cancelling ctx returns
// early and leaves the next typed line for the following Ask.
func (prompter *LinePrompter) Ask(ctx context.Context, question string) (string, error) {
	prompter.mu.Lock()
	defer prompter.mu.Unlock()

	if _, err := fmt.Fprint(prompter.writer, question+" "); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}
	prompter.start.Do(func() {
		go prompter.readLoop()
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-prompter.lines:
		if !ok {
			if prompter.readErr != nil {
				return "", fmt.Errorf("read answer: %w", prompter.readErr)
			}
			return "", nil
		}
		return line, nil
	}
}

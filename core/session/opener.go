package session

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

const defaultEditorCommand = "code"

// Opener shows a source location ("file:line") to the user.
type Opener interface {
	Open(ctx context.Context, location string) error
}

// EditorOpener runs `<Command> --goto file:line`. Command defaults to code.
type EditorOpener struct {
	Command string
}

func (opener EditorOpener) Open(ctx context.Context, location string) error {
	trimmed := strings.TrimSpace(location)
	if trimmed == "" {
		return fmt.Errorf("source location is required")
	}
	command := strings.TrimSpace(opener.Command)
	if command == "" {
		command = defaultEditorCommand
	}
	// #nosec G204 -- editor command is local configuration, location comes from runtime.Caller.
	if output, err := exec.CommandContext(ctx, command, "--goto", trimmed).CombinedOutput(); err != nil {
		return fmt.Errorf("open %s in %s: %w: %s", trimmed, command, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// callerLocation returns file:line of the frame skip levels above its caller.
func callerLocation(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", file, line)
}

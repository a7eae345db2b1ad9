package linenoise

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/peterh/liner"
)

// ErrAborted is returned by Prompt when the user pressed Ctrl-C.
var ErrAborted = liner.ErrPromptAborted

// LineNoise is a line editor with history, backed by liner.
type LineNoise struct {
	*liner.State
	out io.Writer
}

// New puts the terminal into raw mode. Call Close to restore it.
func New() *LineNoise {
	l := liner.NewLiner()
	l.SetCtrlCAborts(true)
	return &LineNoise{State: l, out: os.Stdout}
}

// HistoryLoad reads history from filepath. A missing file is not an error.
func (ln *LineNoise) HistoryLoad(filepath string) error {
	f, err := os.Open(filepath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = ln.ReadHistory(f)
	return err
}

// HistorySave writes the in-memory history to filepath.
func (ln *LineNoise) HistorySave(filepath string) error {
	f, err := os.OpenFile(filepath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := ln.WriteHistory(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (ln *LineNoise) ClearScreen() error {
	_, err := fmt.Fprint(ln.out, "\x1b[H\x1b[2J")
	return err
}

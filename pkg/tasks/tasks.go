package tasks

import (
	"bytes"
	"io"
	"sync"

	"bootc-guide/pkg/shell"
)

// DefaultContainerfile is the recipe filename the build reads from the workspace
const DefaultContainerfile = "Containerfile"

type taskOptions struct {
	WorkDir       string
	Containerfile string
	ContextDir    string
	DisplayStderr io.Writer
	Runner        shell.Runner
}

type taskOptionFunc func(*taskOptions)

func newDefaultTaskOpts() *taskOptions {
	return &taskOptions{
		WorkDir:       ".",
		Containerfile: DefaultContainerfile,
		ContextDir:    ".",
		DisplayStderr: nil,
		Runner:        shell.DefaultRunner,
	}
}

// WithWorkDir sets the directory the build and inspect commands run in
func WithWorkDir(dir string) taskOptionFunc {
	return func(o *taskOptions) {
		o.WorkDir = dir
	}
}

// WithContainerfile overrides the recipe filename, relative to the work dir
func WithContainerfile(name string) taskOptionFunc {
	return func(o *taskOptions) {
		o.Containerfile = name
	}
}

// WithDisplay mirrors build stderr to w, line prefixed, while it is captured
func WithDisplay(w io.Writer) taskOptionFunc {
	return func(o *taskOptions) {
		o.DisplayStderr = w
	}
}

// WithRunner replaces the command runner, dry run and tests use this
func WithRunner(r shell.Runner) taskOptionFunc {
	return func(o *taskOptions) {
		o.Runner = r
	}
}

// PrefixWriter writes every complete line it receives to dst as "[prefix] line"
//
// Call Close to flush a trailing line without a newline.
type PrefixWriter struct {
	dst    io.Writer
	prefix string
	mu     sync.Mutex
	buf    bytes.Buffer
}

func NewPrefixWriter(dst io.Writer, prefix string) *PrefixWriter {
	return &PrefixWriter{dst: dst, prefix: prefix}
}

func (w *PrefixWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// put back the partial line until more arrives
			rest := append([]byte(nil), line...)
			w.buf.Reset()
			w.buf.Write(rest)
			break
		}
		if err := w.writeLine(line[:len(line)-1]); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (w *PrefixWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() == 0 {
		return nil
	}
	line := append([]byte(nil), w.buf.Bytes()...)
	w.buf.Reset()
	return w.writeLine(line)
}

func (w *PrefixWriter) writeLine(line []byte) error {
	_, err := io.WriteString(w.dst, "["+w.prefix+"] "+string(line)+"\n")
	return err
}

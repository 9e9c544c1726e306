package pkg

import (
	"io"

	"go.uber.org/multierr"
)

// CombinedWriter copies every write to all of its writers, e.g. stdout and the rotated log file.
// A failing writer does not stop the others.
type CombinedWriter struct {
	Writers []io.Writer
}

func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	return &CombinedWriter{
		Writers: append([]io.Writer(nil), writers...),
	}
}

// Write reports the longest successful write, and all the writer errors combined.
func (cw *CombinedWriter) Write(p []byte) (n int, err error) {
	for _, w := range cw.Writers {
		written, werr := w.Write(p)
		if werr == nil && written < len(p) {
			werr = io.ErrShortWrite
		}
		err = multierr.Append(err, werr)
		n = max(n, written)
	}
	return n, err
}

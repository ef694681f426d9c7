package kfmt

import "io"

// PrefixWriter is an io.Writer that wraps another io.Writer and injects a
// prefix at the beginning of each line.
type PrefixWriter struct {
	// A writer where all writes get sent to. If nil, output goes to the
	// active output sink.
	Sink io.Writer

	// The prefix injected at the beginning of each line.
	Prefix []byte

	midLine bool
}

// ModuleWriter returns a PrefixWriter that tags every line with "[module] "
// and forwards it to sink.
func ModuleWriter(sink io.Writer, module string) *PrefixWriter {
	return &PrefixWriter{
		Sink:   sink,
		Prefix: []byte("[" + module + "] "),
	}
}

// Write writes p to the underlying sink, emitting the prefix before the first
// byte of every line. The returned byte count does not include any injected
// prefix bytes.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var written int

	for len(p) != 0 {
		if !w.midLine {
			if err := w.sinkWrite(w.Prefix); err != nil {
				return written, err
			}
			w.midLine = true
		}

		end := len(p)
		for i, b := range p {
			if b == '\n' {
				end = i + 1
				w.midLine = false
				break
			}
		}

		if err := w.sinkWrite(p[:end]); err != nil {
			return written, err
		}
		written += end
		p = p[end:]
	}

	return written, nil
}

func (w *PrefixWriter) sinkWrite(p []byte) error {
	sink := w.Sink
	if sink == nil {
		if sink = outputSink; sink == nil {
			_, _ = earlyPrintBuffer.Write(p)
			return nil
		}
	}

	_, err := sink.Write(p)
	return err
}

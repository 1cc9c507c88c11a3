package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// asyncWriter moves formatted lines off the caller's goroutine. Lines are
// copied, queued and written in order by one goroutine to every sink.
type asyncWriter struct {
	lines chan writeReq
	done  chan struct{}

	// gate guards lines against sends after close.
	gate   sync.RWMutex
	closed bool

	out *bufio.Writer

	mu  sync.Mutex
	err error
}

// writeReq is either a line or, when ack is set, a flush barrier.
type writeReq struct {
	line []byte
	ack  chan error
}

func newAsyncWriter(sinks []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	live := sinks[:0:0]
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	w := &asyncWriter{
		lines: make(chan writeReq, 256),
		done:  make(chan struct{}),
		out:   bufio.NewWriterSize(io.MultiWriter(live...), bufSize),
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for req := range w.lines {
		if req.ack != nil {
			req.ack <- w.out.Flush()
			continue
		}
		if _, err := w.out.Write(req.line); err != nil {
			w.fail(err)
			continue
		}
		// Flush when idle so a quiet bot still shows its last lines.
		if len(w.lines) == 0 {
			if err := w.out.Flush(); err != nil {
				w.fail(err)
			}
		}
	}
	if err := w.out.Flush(); err != nil {
		w.fail(err)
	}
}

// Write queues a copy of p. It blocks when the queue is full rather than
// dropping lines.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.firstErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	return w.send(writeReq{line: append([]byte(nil), p...)})
}

// Flush returns once every line queued before the call reached the sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	if err := w.send(writeReq{ack: ack}); err != nil {
		return err
	}
	if err := <-ack; err != nil {
		return err
	}
	return w.firstErr()
}

// Close drains the queue and stops the writer goroutine.
func (w *asyncWriter) Close() error {
	w.gate.Lock()
	if !w.closed {
		w.closed = true
		close(w.lines)
	}
	w.gate.Unlock()
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) send(req writeReq) error {
	w.gate.RLock()
	defer w.gate.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.lines <- req
	return nil
}

func (w *asyncWriter) fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

func (w *asyncWriter) firstErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

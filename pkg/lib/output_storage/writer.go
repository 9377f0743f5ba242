package output_storage

import (
	"bytes"
	"sync"
	"unicode/utf8"
)

// MaxLineLength bounds a single stored line. Longer runs without a newline are
// split into several lines.
const MaxLineLength = 64 * 1024

// LineWriter is the io.Writer handed to a child process as stdout and stderr.
// It splits the byte stream on '\n', drops a trailing '\r', decodes each line
// and appends it to the storage. Partial lines stay buffered until the next
// newline or Flush.
type LineWriter struct {
	mu      sync.Mutex
	storage *OutputStorage
	decoder Decoder
	pending []byte
}

// NewLineWriter writes into storage. A nil decoder means UTF-8.
func NewLineWriter(storage *OutputStorage, decoder Decoder) *LineWriter {
	if decoder == nil {
		decoder = utf8Decoder{}
	}
	return &LineWriter{storage: storage, decoder: decoder}
}

// Write implements io.Writer. p is not retained.
func (w *LineWriter) Write(p []byte) (int, error) {
	if w == nil {
		return len(p), nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	rest := p
	for len(rest) > 0 {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			w.pending = append(w.pending, rest...)
			for len(w.pending) >= MaxLineLength {
				cut := w.splitPoint(w.pending[:MaxLineLength])
				w.emit(w.pending[:cut])
				w.pending = append(w.pending[:0], w.pending[cut:]...)
			}
			break
		}
		if len(w.pending) > 0 {
			w.pending = append(w.pending, rest[:i]...)
			w.emit(w.pending)
			w.pending = w.pending[:0]
		} else {
			w.emit(rest[:i])
		}
		rest = rest[i+1:]
	}

	return len(p), nil
}

// Flush emits a buffered partial line, if any. Calling it again is a no-op.
func (w *LineWriter) Flush() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return
	}
	w.emit(w.pending)
	w.pending = w.pending[:0]
}

// splitPoint is where a forced split of chunk happens. For UTF-8 it moves back
// before a rune that the chunk cuts in half.
func (w *LineWriter) splitPoint(chunk []byte) int {
	if _, ok := w.decoder.(utf8Decoder); !ok {
		return len(chunk)
	}
	for i := len(chunk) - 1; i >= 0 && i >= len(chunk)-utf8.UTFMax; i-- {
		if utf8.RuneStart(chunk[i]) {
			if i > 0 && !utf8.FullRune(chunk[i:]) {
				return i
			}
			break
		}
	}
	return len(chunk)
}

func (w *LineWriter) emit(raw []byte) {
	raw = bytes.TrimSuffix(raw, []byte{'\r'})
	w.storage.Append(w.decoder.Decode(raw))
}

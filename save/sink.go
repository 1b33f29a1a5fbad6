package save

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Sink receives the encoded snapshot.
type Sink interface {
	Write(data []byte) error
	fmt.Stringer
}

type fileSink string

// File writes to path, truncating it. A failure can leave a partial file.
func File(path string) Sink {
	return fileSink(path)
}

func (f fileSink) Write(data []byte) error {
	return os.WriteFile(string(f), data, 0o644)
}

func (f fileSink) String() string { return "file:" + string(f) }

type atomicFileSink string

// AtomicFile writes to a temporary file next to path and renames it into
// place, so readers see either the old or the new snapshot.
func AtomicFile(path string) Sink {
	return atomicFileSink(path)
}

func (f atomicFileSink) Write(data []byte) error {
	path := string(f)
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (f atomicFileSink) String() string { return "atomic-file:" + string(f) }

type streamSink struct {
	w io.Writer
}

// Stream writes to w.
func Stream(w io.Writer) Sink {
	return streamSink{w: w}
}

func (s streamSink) Write(data []byte) error {
	_, err := s.w.Write(data)
	return err
}

func (s streamSink) String() string { return fmt.Sprintf("stream:%T", s.w) }

type memorySink struct {
	buf *bytes.Buffer
}

// Memory replaces the contents of buf with each save.
func Memory(buf *bytes.Buffer) Sink {
	return memorySink{buf: buf}
}

func (m memorySink) Write(data []byte) error {
	m.buf.Reset()
	_, err := m.buf.Write(data)
	return err
}

func (memorySink) String() string { return "memory" }

// SinkFunc adapts a function to Sink.
type SinkFunc func(data []byte) error

func (f SinkFunc) Write(data []byte) error { return f(data) }

func (SinkFunc) String() string { return "func" }

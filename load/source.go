package load

import (
	"fmt"
	"io"
	"os"
)

// Source provides the encoded snapshot.
type Source interface {
	Read() ([]byte, error)
	fmt.Stringer
}

type fileSource string

// File reads the whole file at path.
func File(path string) Source {
	return fileSource(path)
}

func (f fileSource) Read() ([]byte, error) {
	return os.ReadFile(string(f))
}

func (f fileSource) String() string { return "file:" + string(f) }

type streamSource struct {
	r io.Reader
}

// Stream reads r to EOF.
func Stream(r io.Reader) Source {
	return streamSource{r: r}
}

func (s streamSource) Read() ([]byte, error) {
	return io.ReadAll(s.r)
}

func (s streamSource) String() string { return fmt.Sprintf("stream:%T", s.r) }

type memorySource []byte

// Memory serves data as is.
func Memory(data []byte) Source {
	return memorySource(data)
}

func (m memorySource) Read() ([]byte, error) {
	return m, nil
}

func (memorySource) String() string { return "memory" }

// SourceFunc adapts a function to Source.
type SourceFunc func() ([]byte, error)

func (f SourceFunc) Read() ([]byte, error) { return f() }

func (SourceFunc) String() string { return "func" }

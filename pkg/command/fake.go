package command

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Fake is a scripted Runner and Streamer for tests. Responses are matched
// by prefix against the rendered command line; the longest prefix wins.
type Fake struct {
	mu        sync.Mutex
	responses map[string]FakeResponse
	Calls     []string
}

// FakeResponse is the scripted result for a command prefix
type FakeResponse struct {
	Output string
	Err    error
}

// NewFake creates an empty Fake; unscripted commands succeed silently
func NewFake() *Fake {
	return &Fake{responses: make(map[string]FakeResponse)}
}

// On scripts the response for commands starting with prefix
func (f *Fake) On(prefix string, output string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = FakeResponse{Output: output, Err: err}
	return f
}

// Run implements Runner
func (f *Fake) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	resp := f.match(Line(name, args...))
	if resp.Err != nil {
		return []byte(resp.Output), &ExitError{Command: Line(name, args...), Output: resp.Output, Err: resp.Err}
	}
	return []byte(resp.Output), nil
}

// Stream implements Streamer
func (f *Fake) Stream(_ context.Context, w io.Writer, name string, args ...string) error {
	resp := f.match(Line(name, args...))
	if _, err := io.WriteString(w, resp.Output); err != nil {
		return err
	}
	if resp.Err != nil {
		return &ExitError{Command: Line(name, args...), Err: resp.Err}
	}
	return nil
}

// Called reports whether any recorded call starts with prefix
func (f *Fake) Called(prefix string) bool {
	return f.Count(prefix) > 0
}

// Count returns how many recorded calls start with prefix
func (f *Fake) Count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *Fake) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("%q", f.Calls)
}

func (f *Fake) match(line string) FakeResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, line)

	best := -1
	var resp FakeResponse
	for prefix, r := range f.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > best {
			best = len(prefix)
			resp = r
		}
	}
	return resp
}

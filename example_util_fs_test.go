package trinity_test

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"sync"
	"time"

	"golang.org/x/net/html"

	"impractical.co/trinity"
)

// staticFS is an fs.FS over in-memory files that counts how many times each
// path is opened. Paths in errs fail with that error instead, and opening a
// path in gates blocks until its channel is closed.
type staticFS struct {
	files map[string]string
	errs  map[string]error
	gates map[string]chan struct{}

	opens   map[string]int
	opensMu sync.Mutex
}

func newStaticFS(files map[string]string) *staticFS {
	return &staticFS{
		files: files,
		errs:  map[string]error{},
		gates: map[string]chan struct{}{},
		opens: map[string]int{},
	}
}

// Open opens the named file.
// When Open returns an error, it should be of type *PathError
// with the Op field set to "open", the Path field set to name,
// and the Err field describing the problem.
//
// Open should reject attempts to open names that do not satisfy
// ValidPath(name), returning a *PathError with Err set to
// ErrInvalid or ErrNotExist.
func (s *staticFS) Open(name string) (fs.File, error) {
	s.opensMu.Lock()
	s.opens[name]++
	gate := s.gates[name]
	s.opensMu.Unlock()
	if gate != nil {
		<-gate
	}
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if err, ok := s.errs[name]; ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	val, ok := s.files[name]
	if !ok {
		return nil, &fs.PathError{
			Op:   "open",
			Path: name,
			Err:  fs.ErrNotExist,
		}
	}
	return &staticFile{
		name:     name,
		contents: []byte(val),
	}, nil
}

// Opens returns how many times name has been opened.
func (s *staticFS) Opens(name string) int {
	s.opensMu.Lock()
	defer s.opensMu.Unlock()
	return s.opens[name]
}

// Opened returns how many times each path has been opened.
func (s *staticFS) Opened() map[string]int {
	s.opensMu.Lock()
	defer s.opensMu.Unlock()
	res := map[string]int{}
	for k, v := range s.opens {
		res[k] = v
	}
	return res
}

type staticFile struct {
	name     string
	contents []byte
	offset   int
}

func (s *staticFile) Stat() (fs.FileInfo, error) {
	return s, nil
}

func (s *staticFile) Read(buf []byte) (int, error) {
	if s.offset >= len(s.contents) {
		return 0, io.EOF
	}
	if s.offset < 0 {
		return 0, &fs.PathError{
			Op:   "read",
			Path: s.name,
			Err:  fs.ErrInvalid,
		}
	}
	n := copy(buf, s.contents[s.offset:])
	s.offset += n
	return n, nil
}

func (*staticFile) Close() error {
	return nil
}

func (s *staticFile) Name() string {
	return s.name
}

func (s *staticFile) Size() int64 {
	return int64(len(s.contents))
}

func (*staticFile) Mode() fs.FileMode {
	return 0400
}

func (*staticFile) ModTime() time.Time {
	return time.Now()
}

func (*staticFile) IsDir() bool {
	return false
}

func (*staticFile) Sys() any {
	return nil
}

// goScripts is a ScriptCompiler whose scripts are Go functions, looked up by
// template name. A template has a script if its .script resource exists; the
// resource's contents are only used for dependency scanning.
type goScripts map[string]trinity.Script

func (goScripts) Extension() string {
	return ".script"
}

func (s goScripts) Compile(_ context.Context, name string, _ []byte) (trinity.Script, error) {
	script, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("no script registered for %q", name)
	}
	return script, nil
}

const staticShell = `<!doctype html><html><head><title>test</title></head><body></body></html>`

// result is what a Callback was called with.
type result struct {
	err  error
	frag *trinity.Fragment
	load trinity.Invoker
}

// collect returns a Callback that sends its arguments on the returned
// channel. The channel is buffered so a misbehaving engine calling the
// callback twice doesn't block.
func collect() (trinity.Callback, chan result) {
	results := make(chan result, 4)
	return func(err error, frag *trinity.Fragment, load trinity.Invoker) {
		results <- result{err: err, frag: frag, load: load}
	}, results
}

func wait(results chan result) (result, bool) {
	select {
	case res := <-results:
		return res, true
	case <-time.After(5 * time.Second):
		return result{}, false
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

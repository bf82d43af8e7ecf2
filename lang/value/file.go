package value

import "os"

// ObjFile wraps an OS file handle opened by the `file` module or by a
// with(path, mode) { ... } statement (see spec §4.5). Only the integration
// hook is in scope here, per spec §1: the file module's full surface lives
// outside the core.
type ObjFile struct {
	Obj
	Name   string
	Mode   string
	Handle *os.File
	Closed bool
}

var _ Object = (*ObjFile)(nil)

func (f *ObjFile) String() string { return "<file '" + f.Name + "'>" }
func (f *ObjFile) Type() string   { return "file" }

// Close closes the underlying handle, idempotently: closing an already
// closed file is not an error, matching `with`'s guarantee that the file is
// closed on every exit path even if the body already closed it explicitly.
func (f *ObjFile) Close() error {
	if f.Closed {
		return nil
	}
	f.Closed = true
	return f.Handle.Close()
}

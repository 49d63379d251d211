package fs

import (
	"errors"
	"io"
	"os"
)

// ErrInjectedFailure is returned by a [Fault] file once its configured
// failure point is reached.
var ErrInjectedFailure = errors.New("fs: injected failure")

// Fault wraps an [FS] and deterministically injects failures into files it
// opens, so the archive codec's error paths (IO, UnexpectedEof) can be
// exercised without needing real disk-full or I/O-error conditions.
//
// Unlike a probabilistic fault injector, Fault is counter-based: each limit
// takes effect at an exact byte count, counted per opened file, and stays in
// effect for every later call on that file, which keeps tests reproducible.
type Fault struct {
	inner FS

	// MaxReadBytes caps the total number of bytes any Read on a file opened
	// through this Fault will ever return, simulating a source that runs out
	// early (truncated file, dropped connection). Zero means unlimited.
	MaxReadBytes int64

	// FailWriteAfterBytes makes Write return ErrInjectedFailure once this many
	// bytes have been written to a file opened through this Fault. Zero means
	// never fail.
	FailWriteAfterBytes int64

	// ShortReadSize, if non-zero, caps every individual Read to at most this
	// many bytes, forcing callers to loop (valid io.Reader behavior, not an
	// error) - this exercises readExact's loop rather than assuming a single
	// Read call fills the buffer.
	ShortReadSize int
}

// NewFault returns a Fault wrapping inner with no failures configured.
func NewFault(inner FS) *Fault {
	return &Fault{inner: inner}
}

func (f *Fault) Open(path string) (File, error) {
	file, err := f.inner.Open(path)
	if err != nil {
		return nil, err
	}

	return f.wrap(file), nil
}

func (f *Fault) Create(path string) (File, error) {
	file, err := f.inner.Create(path)
	if err != nil {
		return nil, err
	}

	return f.wrap(file), nil
}

func (f *Fault) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	file, err := f.inner.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}

	return f.wrap(file), nil
}

func (f *Fault) Stat(path string) (os.FileInfo, error) { return f.inner.Stat(path) }

func (f *Fault) MkdirAll(path string, perm os.FileMode) error {
	return f.inner.MkdirAll(path, perm)
}

func (f *Fault) ReadDir(path string) ([]os.DirEntry, error) { return f.inner.ReadDir(path) }

func (f *Fault) Remove(path string) error { return f.inner.Remove(path) }

func (f *Fault) wrap(file File) File {
	return &faultFile{File: file, cfg: f}
}

type faultFile struct {
	File
	cfg        *Fault
	readCount  int64
	writeCount int64
}

func (ff *faultFile) Read(p []byte) (int, error) {
	if ff.cfg.MaxReadBytes > 0 && ff.readCount >= ff.cfg.MaxReadBytes {
		return 0, io.EOF
	}

	buf := p
	if ff.cfg.MaxReadBytes > 0 {
		remaining := ff.cfg.MaxReadBytes - ff.readCount
		if int64(len(buf)) > remaining {
			buf = buf[:remaining]
		}
	}

	if ff.cfg.ShortReadSize > 0 && len(buf) > ff.cfg.ShortReadSize {
		buf = buf[:ff.cfg.ShortReadSize]
	}

	n, err := ff.File.Read(buf)
	ff.readCount += int64(n)

	return n, err
}

func (ff *faultFile) Write(p []byte) (int, error) {
	if ff.cfg.FailWriteAfterBytes > 0 && ff.writeCount >= ff.cfg.FailWriteAfterBytes {
		return 0, ErrInjectedFailure
	}

	toWrite := p
	if ff.cfg.FailWriteAfterBytes > 0 {
		remaining := ff.cfg.FailWriteAfterBytes - ff.writeCount
		if int64(len(toWrite)) > remaining {
			toWrite = toWrite[:remaining]
		}
	}

	n, err := ff.File.Write(toWrite)
	ff.writeCount += int64(n)

	if err == nil && len(toWrite) < len(p) {
		err = ErrInjectedFailure
	}

	return n, err
}

// Compile-time interface checks.
var _ FS = (*Fault)(nil)
var _ File = (*faultFile)(nil)

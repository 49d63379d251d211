package cli

// fatalError marks an error as a fatal top-level failure - a bad archive or
// an I/O failure opening the container itself - as opposed to a per-item
// problem that gets warned about and skipped. Command.Run reports it as
// exit code 2 instead of the usual 1.
type fatalError struct {
	err error
}

// Fatal wraps err so Command.Run exits 2 instead of 1. A nil err stays nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}

	return &fatalError{err: err}
}

func (e *fatalError) Error() string {
	return e.err.Error()
}

func (e *fatalError) Unwrap() error {
	return e.err
}

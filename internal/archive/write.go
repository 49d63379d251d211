package archive

import (
	"io"
	"os"
	"path"
	"strings"

	afs "github.com/kbulgrien/arch/internal/fs"
)

// basename returns the final path component of p, accepting either slash
// or backslash separators so callers on any platform get a plain filename
// as the stored member name.
func basename(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return path.Base(p)
}

// LevelStore tells [Writer.AddFile] to store a member's bytes verbatim,
// skipping DEFLATE entirely. It is distinct from flate.NoCompression (which
// still produces a DEFLATE stream, of uncompressed blocks, that a reader must
// inflate); a stored member's bytes are copied byte-for-byte and can be read
// back without running the decompressor at all.
const LevelStore = MinCompressionLevel - 1

type writerState int

const (
	writerStateReady writerState = iota
	writerStateWritingMember
	writerStatePoisoned
	writerStateClosed
)

// Writer is a single archive-creation session: [CreateArchive] opens it,
// repeated calls to [Writer.AddFile] append members, and [Writer.Close]
// finalizes the archive header and closes the underlying file.
//
// A Writer is not safe for concurrent use. Its methods must be called in
// strict sequence: AddFile may only be called when the writer is in the
// ready state (not while a previous AddFile call is still running - which
// cannot happen from a single goroutine). A failed AddFile poisons the
// Writer: the failure is recorded as firstErr, and every subsequent AddFile
// fails fast by returning it again rather than attempting to append another
// member to an archive that is already known to be invalid. Close remains
// callable on a poisoned Writer so the underlying file still gets closed.
type Writer struct {
	fsys     afs.FS
	f        afs.File
	state    writerState
	count    uint32
	firstErr error
}

// CreateArchive creates (truncating if necessary) the archive file at path
// within fsys, writes a provisional archive header (fileCount 0), and
// returns a [Writer] ready to accept members.
func CreateArchive(fsys afs.FS, path string) (*Writer, error) {
	if fsys == nil || path == "" {
		return nil, newErr(InvalidArgument, "CreateArchive", nil)
	}

	f, err := fsys.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, newErr(IO, "CreateArchive", err)
	}

	if err := WriteArchiveHeader(f, ArchiveHeader{Version: FormatVersion, FileCount: 0}); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Writer{fsys: fsys, f: f, state: writerStateReady}, nil
}

// AddFile reads the file at path from the writer's filesystem and appends it
// to the archive as a member named after path's final component (see
// basename). level selects the DEFLATE
// compression level (see [MinCompressionLevel], [MaxCompressionLevel],
// [DefaultCompressionLevel]) or [LevelStore] to store the bytes verbatim.
//
// The member's header is written with placeholder size and checksum fields,
// the body is streamed directly from the source file to the archive (never
// buffered whole in memory), and the header is then back-patched with the
// final sizes and checksums - the write-side half of the format's
// streaming contract.
func (w *Writer) AddFile(path string, level int) (err error) {
	if w.state == writerStatePoisoned {
		return w.firstErr
	}

	if w.state != writerStateReady {
		return newErr(Internal, "AddFile", nil)
	}

	w.state = writerStateWritingMember
	defer func() {
		if err != nil {
			w.state = writerStatePoisoned
			w.firstErr = err

			return
		}

		w.state = writerStateReady
	}()

	if path == "" {
		return newErr(InvalidArgument, "AddFile", nil)
	}

	// Members are stored under their basename, not their full path - two
	// inputs "a/x.txt" and "b/x.txt" both archive as "x.txt". Callers that
	// need to preserve directory structure must do so outside the codec.
	name := basename(path)
	if len(name) > maxNameLength {
		return newErr(NameTooLong, "AddFile", nil)
	}

	src, err := w.fsys.Open(path)
	if err != nil {
		return newErr(IO, "AddFile", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return newErr(IO, "AddFile", err)
	}

	placeholder := FileHeader{
		Name:       name,
		Compressed: level != LevelStore,
	}

	patch, err := WriteFileHeader(w.f, placeholder)
	if err != nil {
		return err
	}

	var origSize, compSize uint64
	var crcUncompressed, crcCompressed uint32

	if level == LevelStore {
		origSize = uint64(info.Size())
		crcUncompressed, err = copyN(src, w.f, origSize)
		if err != nil {
			return err
		}

		compSize = origSize
		crcCompressed = crcUncompressed
	} else {
		origSize, compSize, crcUncompressed, err = compressStream(w.f, src, level)
		if err != nil {
			return err
		}

		crcCompressed, err = crc32OfWrittenRange(w.f, compSize)
		if err != nil {
			return err
		}
	}

	if err := PatchFileHeaderSizes(w.f, patch, origSize, compSize); err != nil {
		return err
	}

	if err := PatchFileHeaderCrcs(w.f, patch, crcUncompressed, crcCompressed); err != nil {
		return err
	}

	w.count++

	return nil
}

// crc32OfWrittenRange re-reads the compSize bytes just written - the range
// ending at the file's current position - and returns their CRC-32.
// compressStream only has a CRC over the uncompressed bytes (computed while
// reading from the source); the compressed CRC is defined over the bytes
// actually stored in the archive, so it is computed in a second pass once
// the compressed size is known.
func crc32OfWrittenRange(f afs.File, compSize uint64) (uint32, error) {
	end, err := tell(f)
	if err != nil {
		return 0, err
	}

	bodyStart := end - int64(compSize)
	if err := seekAbs(f, bodyStart); err != nil {
		return 0, err
	}

	crc, err := copyN(f, io.Discard, compSize)
	if err != nil {
		return 0, err
	}

	if err := seekAbs(f, end); err != nil {
		return 0, err
	}

	return crc, nil
}

// Close finalizes the archive by patching the true member count into the
// archive header, then closes the underlying file. Close is idempotent:
// calling it more than once returns nil without touching the file again.
//
// Close is also callable on a poisoned Writer (one whose last AddFile
// failed): w.count only ever advances past a member that was fully written
// and patched, so whatever trailing, half-written bytes the failed AddFile
// left behind sit past the point any Reader will read to and are simply
// never looked at - Close still finalizes the header with the true count
// of complete members. It does not return firstErr; that error was already
// reported to the AddFile caller, and a poisoned Writer closing cleanly is
// not itself a second failure.
func (w *Writer) Close() error {
	if w.state == writerStateClosed {
		return nil
	}

	if w.state != writerStateReady && w.state != writerStatePoisoned {
		return newErr(Internal, "Close", nil)
	}

	err := PatchFileCount(w.f, w.count)
	closeErr := w.f.Close()
	w.state = writerStateClosed

	if err != nil {
		return err
	}

	if closeErr != nil {
		return newErr(IO, "Close", closeErr)
	}

	return nil
}

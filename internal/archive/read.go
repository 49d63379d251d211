package archive

import (
	"io"
	"os"

	afs "github.com/kbulgrien/arch/internal/fs"
)

type readerState int

const (
	readerStateReady readerState = iota
	readerStateReadingMember
	readerStateEndOfArchive
	readerStateClosed
)

// Reader is a single archive-extraction session: [OpenArchive] opens it,
// repeated calls to [Reader.Next] step through members in archive order,
// and [Reader.Close] closes the underlying file.
//
// A Reader is not safe for concurrent use, and [Member.WriteTo] must be
// called (or explicitly skipped) before the next call to Next - a member's
// body is only valid to read while it is the current member.
type Reader struct {
	f         afs.File
	state     readerState
	remaining uint32
}

// OpenArchive opens the archive file at path within fsys and validates its
// header, returning a [Reader] positioned before the first member.
func OpenArchive(fsys afs.FS, path string) (*Reader, error) {
	if fsys == nil || path == "" {
		return nil, newErr(InvalidArgument, "OpenArchive", nil)
	}

	f, err := fsys.Open(path)
	if err != nil {
		return nil, newErr(IO, "OpenArchive", err)
	}

	hdr, err := ReadArchiveHeader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Reader{f: f, state: readerStateReady, remaining: hdr.FileCount}, nil
}

// Member is the current member of a [Reader]: its decoded header plus the
// session state needed to materialize its body exactly once.
type Member struct {
	Header    FileHeader
	r         *Reader
	bodyStart int64
}

// Next advances to the next member and returns its header. It returns
// io.EOF once every member has been consumed.
func (r *Reader) Next() (Member, error) {
	if r.state == readerStateClosed {
		return Member{}, newErr(Internal, "Next", nil)
	}

	if r.state == readerStateEndOfArchive || r.remaining == 0 {
		r.state = readerStateEndOfArchive
		return Member{}, io.EOF
	}

	hdr, err := ReadFileHeader(r.f)
	if err != nil {
		return Member{}, err
	}

	bodyStart, err := tell(r.f)
	if err != nil {
		return Member{}, err
	}

	r.remaining--
	r.state = readerStateReadingMember

	return Member{Header: hdr, r: r, bodyStart: bodyStart}, nil
}

// WriteTo materializes the member's body at destPath within fsys, verifying
// its checksums as it streams (see [Member.Stream]). On a checksum mismatch it returns
// [CrcMismatch] after the destination has already received the (corrupt)
// bytes - callers that care about never leaving a partial file behind
// should remove destPath on error, or use [Member.Stream] with their own
// temp-file-then-rename sequence instead.
func (m Member) WriteTo(fsys afs.FS, destPath string) error {
	if m.r == nil || m.r.state != readerStateReadingMember {
		return newErr(Internal, "WriteTo", nil)
	}

	dst, err := fsys.OpenFile(destPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return newErr(IO, "WriteTo", err)
	}
	defer dst.Close()

	return m.Stream(dst)
}

// Stream decompresses (or copies, for a stored member) the current member's
// body directly to w, verifying checksums as it goes: both CRCs for a
// compressed member, and only Crc32Uncompressed for a stored one. It is the
// primitive WriteTo is built on; callers that need atomic extraction - write
// to a temp file, verify, then rename into place - call Stream themselves
// against a writer of their choosing instead of going through WriteTo's
// fsys-backed OpenFile.
func (m Member) Stream(w io.Writer) (err error) {
	r := m.r
	if r == nil || r.state != readerStateReadingMember {
		return newErr(Internal, "Stream", nil)
	}

	defer func() { r.state = readerStateReady }()
	defer m.resync(&err)

	var crcUncompressed uint32

	if m.Header.Compressed {
		var origSize uint64
		var crcCompressed uint32

		origSize, crcUncompressed, crcCompressed, err = decompressStream(w, r.f, m.Header.CompSize)
		if err != nil {
			return err
		}

		if origSize != m.Header.OrigSize {
			return newErr(Corrupted, "Stream", nil)
		}

		if crcCompressed != m.Header.Crc32Compressed {
			return newErr(CrcMismatch, "Stream", nil)
		}
	} else {
		crcUncompressed, err = copyN(r.f, w, m.Header.OrigSize)
		if err != nil {
			return err
		}
	}

	if crcUncompressed != m.Header.Crc32Uncompressed {
		return newErr(CrcMismatch, "Stream", nil)
	}

	return nil
}

// Skip discards the current member's body without materializing it,
// advancing the stream past it so the next call to Next can proceed.
func (m Member) Skip() (err error) {
	r := m.r
	if r == nil || r.state != readerStateReadingMember {
		return newErr(Internal, "Skip", nil)
	}

	defer func() { r.state = readerStateReady }()
	defer m.resync(&err)

	_, err = copyN(r.f, io.Discard, m.Header.CompSize)

	return err
}

// resync seeks the reader's file to exactly the end of this member's body
// (bodyStart + CompSize), regardless of how much of the body Stream or Skip
// actually consumed before returning. A checksum failure or a decoder that
// bails out early (flate can stop reading before its declared length is
// exhausted, see decompressStream) would otherwise leave the file position
// misaligned with the next member's header, corrupting every subsequent
// Next call. If *errp is already set, a resync failure is ignored - the
// caller already has a more specific error to report.
func (m Member) resync(errp *error) {
	target := m.bodyStart + int64(m.Header.CompSize)

	if seekErr := seekAbs(m.r.f, target); seekErr != nil && *errp == nil {
		*errp = seekErr
	}
}

// Close closes the underlying file. Close is idempotent.
func (r *Reader) Close() error {
	if r.state == readerStateClosed {
		return nil
	}

	r.state = readerStateClosed

	if err := r.f.Close(); err != nil {
		return newErr(IO, "Close", err)
	}

	return nil
}

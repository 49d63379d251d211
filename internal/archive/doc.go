// Package archive implements the container codec: a single-file archive
// format that stores regular files verbatim or DEFLATE-compressed, each with
// independent CRC-32 checksums.
//
// Writing streams member bodies directly to the archive file and back-patches
// the file header once the compressed size and checksums are known, so a
// member's body never needs to be buffered in memory. Reading is the
// symmetric operation: parse a header, route the body through the matching
// decoder, and verify both checksums.
//
// Neither [Writer] nor [Reader] is safe for concurrent use by multiple
// goroutines; callers must serialize all operations on one session.
package archive

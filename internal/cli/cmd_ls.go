package cli

import (
	"context"
	"errors"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/kbulgrien/arch/internal/archive"
	afs "github.com/kbulgrien/arch/internal/fs"
)

// LsCmd builds the "ls" command, which lists an archive's members without
// extracting them. It is a read-only walk over headers and never invokes
// the decompressor, since a member's sizes and checksums are already
// available once its header has been parsed.
func LsCmd(fsys afs.FS) *Command {
	flags := flag.NewFlagSet("ls", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "ls <archive>",
		Short: "List an archive's members",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) < 1 {
				return errors.New("ls requires an archive path")
			}

			r, err := archive.OpenArchive(fsys, args[0])
			if err != nil {
				return Fatal(err)
			}
			defer r.Close()

			for {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				member, err := r.Next()
				if err != nil {
					if errors.Is(err, io.EOF) {
						break
					}

					return Fatal(err)
				}

				kind := "stored"
				if member.Header.Compressed {
					kind = "deflated"
				}

				o.Printf("%10d %8s  %s\n", member.Header.OrigSize, kind, member.Header.Name)

				if err := member.Skip(); err != nil {
					return Fatal(err)
				}
			}

			return nil
		},
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/kbulgrien/arch/internal/archive"
	afs "github.com/kbulgrien/arch/internal/fs"
)

// PackCmd builds the "pack" command, which writes one or more files into a
// new archive.
func PackCmd(cfg Config, fsys afs.FS) *Command {
	flags := flag.NewFlagSet("pack", flag.ContinueOnError)
	level := flags.Int("level", cfg.DefaultLevel, "DEFLATE compression level (-2=huffman-only .. 9=best, or -3 to store verbatim, same as --store)")
	store := flags.Bool("store", false, "store files verbatim instead of compressing")

	return &Command{
		Flags: flags,
		Usage: "pack <archive> <path>... [--level N | --store]",
		Short: "Create an archive from files and directories",
		Long:  "Creates <archive>, adding every regular file found under each given path. Directories are walked recursively; symlinks and special files are skipped with a warning.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) < 2 {
				return errors.New("pack requires an archive path and at least one input path")
			}

			effectiveLevel := *level
			if *store {
				effectiveLevel = archive.LevelStore
			}

			archivePath := args[0]
			inputs := args[1:]

			var members []string

			for _, input := range inputs {
				found, err := walkFiles(fsys, input, o)
				if err != nil {
					return fmt.Errorf("scanning %s: %w", input, err)
				}

				members = append(members, found...)
			}

			w, err := archive.CreateArchive(fsys, archivePath)
			if err != nil {
				return Fatal(err)
			}

			// Unlike unpack, a failed member here aborts the whole
			// operation: a pack that stops partway through produces an
			// archive with a wrong member count and a never-patched header,
			// so the only safe outcome is to close (best effort) and remove
			// the partial file rather than leave an invalid archive behind.
			for _, member := range members {
				if ctx.Err() != nil {
					_ = w.Close()
					_ = fsys.Remove(archivePath)

					return ctx.Err()
				}

				if err := w.AddFile(member, effectiveLevel); err != nil {
					_ = w.Close()
					_ = fsys.Remove(archivePath)

					return Fatal(fmt.Errorf("adding %s: %w", member, err))
				}
			}

			if err := w.Close(); err != nil {
				_ = fsys.Remove(archivePath)

				return Fatal(err)
			}

			o.Printf("packed %d file(s) into %s\n", len(members), archivePath)

			return nil
		},
	}
}

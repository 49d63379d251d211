package cli

import (
	"os"
	"path/filepath"

	afs "github.com/kbulgrien/arch/internal/fs"
)

// walkFiles walks root (a single file or a directory tree) and returns the
// path of every regular file found: root itself for a single file, or root
// joined with each entry's name, slash-separated, for a tree. Symlinks and
// other non-regular entries (devices, sockets, FIFOs) are skipped with a
// warning rather than followed or archived, since the codec has no member
// type for them.
func walkFiles(fsys afs.FS, root string, o *IO) ([]string, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			o.Warn("skipping %s: not a regular file", root)
			return nil, nil
		}

		return []string{root}, nil
	}

	var out []string

	if err := walkDir(fsys, root, o, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func walkDir(fsys afs.FS, dir string, o *IO, out *[]string) error {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." {
			continue
		}

		path := filepath.Join(dir, name)

		if entry.IsDir() {
			if err := walkDir(fsys, path, o, out); err != nil {
				return err
			}

			continue
		}

		entryInfo, err := entry.Info()
		if err != nil {
			return err
		}

		if entryInfo.Mode()&os.ModeSymlink != 0 {
			o.Warn("skipping %s: symlink", path)
			continue
		}

		if !entryInfo.Mode().IsRegular() {
			o.Warn("skipping %s: not a regular file", path)
			continue
		}

		*out = append(*out, filepath.ToSlash(path))
	}

	return nil
}

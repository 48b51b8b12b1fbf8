package types

import "io/fs"

// EntryKind classifies a directory entry. It is decided once per entry from
// its own mode bits, without following symbolic links.
type EntryKind string

const (
	KindRegularFile  EntryKind = "regular_file"
	KindSymbolicLink EntryKind = "symbolic_link"
	KindDirectory    EntryKind = "directory"
	KindOther        EntryKind = "other"
)

// KindOf maps a file mode (as returned by Lstat or fs.DirEntry.Type) to an
// EntryKind.
func KindOf(mode fs.FileMode) EntryKind {
	switch {
	case mode&fs.ModeSymlink != 0:
		return KindSymbolicLink
	case mode.IsDir():
		return KindDirectory
	case mode.IsRegular():
		return KindRegularFile
	default:
		return KindOther
	}
}

// String returns the kind name
func (k EntryKind) String() string {
	return string(k)
}

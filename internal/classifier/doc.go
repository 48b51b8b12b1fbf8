// Package classifier decides whether a regular file is binary or text and
// counts the lines of text files.
//
// Size and modification time are read from file metadata, so the result is
// correct for files of any size. Binary detection inspects a bounded prefix
// (DefaultSniffLen bytes) and is a heuristic:
//
//   - a NUL byte in the prefix means binary
//   - a prefix that is not valid UTF-8 means binary
//   - anything else is text
//
// Text files are read in full and every '\n' is counted, so a file without a
// trailing newline reports one line less than it has visible lines, and an
// empty file reports zero. Binary files always report zero lines.
//
//	res, err := classifier.Classify("/repo/main.go")
//	if errors.Is(err, types.ErrUnreadableEntry) {
//	    // permission denied, or the file vanished between walk and read
//	}
package classifier

package graphfile

import (
	"bufio"
	"io"
	"strings"

	"graphetl/internal/errors"
)

// DefaultDelimiter separates columns in graph export files.
const DefaultDelimiter = '|'

// ReadHeader returns the raw column tokens of the first line of path.
//
// Only the first line is consumed. The line is split on delim with no quote or
// escape handling, and tokens are returned untrimmed. A trailing "\r\n" or
// "\n" is dropped. An empty file yields a single empty token, which no
// classifier accepts.
//
// Errors:
//   - ErrUnreadableFile if the file cannot be opened or read.
func ReadHeader(path string, delim rune) ([]string, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	line, err := bufio.NewReader(rc).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, errors.Wrapf(errors.New(errors.ErrUnreadableFile, err.Error()), "read header %s", path)
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return strings.Split(line, string(delim)), nil
}

package summary

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	errs "github.com/matzehuels/phaseflow/pkg/errors"
)

// MaxSourceSize caps uploaded source files.
const MaxSourceSize = 1 << 20

// ReadSource reads an uploaded source file verbatim. Only .py and .txt files
// are accepted; "-" reads standard input. The content is not parsed.
func ReadSource(path string) (string, error) {
	if path == "-" {
		return readSource(os.Stdin, "stdin")
	}
	if err := errs.ValidateSourceFilename(path); err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return "", errs.Wrap(errs.ErrCodeFileNotFound, err, "file not found: %s", path)
	}
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readSource(f, path)
}

func readSource(r io.Reader, name string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSourceSize+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) > MaxSourceSize {
		return "", errs.New(errs.ErrCodeInvalidInput, "%s is larger than %d bytes", name, MaxSourceSize)
	}
	if !utf8.Valid(data) {
		return "", errs.New(errs.ErrCodeInvalidInput, "%s is not a UTF-8 text file", name)
	}
	return string(data), nil
}

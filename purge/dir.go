package purge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrUnsafeHandle = errors.New("handle is not a safe path element")

// Dir purges <Root>/<handle>.
type Dir struct {
	Root string
}

func (d Dir) Purge(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkHandle(handle); err != nil {
		return err
	}
	if d.Root == "" {
		return errors.New("purge root is empty")
	}

	if err := os.RemoveAll(filepath.Join(d.Root, handle)); err != nil {
		return fmt.Errorf("purge %s: %w", handle, err)
	}
	return nil
}

func checkHandle(handle string) error {
	if handle == "" || handle == "." || handle == ".." ||
		strings.ContainsAny(handle, `/\`) || strings.ContainsRune(handle, 0) {
		return fmt.Errorf("%w: %q", ErrUnsafeHandle, handle)
	}
	return nil
}

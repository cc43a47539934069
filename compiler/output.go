package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// WriteArtifact writes the module's textual IR to dir/<name>.ll. The
// directory is lock-protected so concurrent driver invocations sharing an
// artifact cache do not interleave writes.
func (c *Compiler) WriteArtifact(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifact dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, ".ceres.lock"))
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("locking artifact dir %s: %w", dir, err)
	}
	defer lock.Unlock()

	path := filepath.Join(dir, name+".ll")
	if err := os.WriteFile(path, []byte(c.GenerateIR()), 0o644); err != nil {
		return "", fmt.Errorf("writing IR artifact: %w", err)
	}
	return path, nil
}

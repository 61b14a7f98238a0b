// Package opener hands files to the desktop's default application.
package opener

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"filesearch/internal/domain"
)

// Opener launches the platform file handler (open, xdg-open or start).
type Opener struct {
	goos  string
	start func(name string, args ...string) error
}

// New returns an Opener for the running platform.
func New() *Opener {
	return &Opener{goos: runtime.GOOS, start: startDetached}
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

// Open launches the default handler for path. A path that no longer exists
// yields an error wrapping domain.ErrNotFound.
func (o *Opener) Open(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, domain.ErrNotFound)
		}
		return err
	}
	name, args := Command(o.goos, path)
	if err := o.start(name, args...); err != nil {
		return fmt.Errorf("open %s with %s: %w", path, name, err)
	}
	return nil
}

// Command returns the program and arguments that open path on goos.
func Command(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "cmd", []string{"/c", "start", "", path}
	default:
		return "xdg-open", []string{path}
	}
}

// Package process holds OS process helpers: browser process-group cleanup
// and handing a finished file to the desktop's default viewer.
package process

import (
	"fmt"
	"os/exec"
)

// Open asks the desktop environment to open path with its default
// application. It returns once the opener has started; the opener is reaped
// in the background.
func Open(path string) error {
	name, args := openCommand(path)
	cmd := exec.Command(name, args...) // #nosec G204 -- fixed opener, path is our own output
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Package file resolves and validates the external binaries diskprep
// invokes (lsblk, sgdisk, mdadm, disko, …).
package file

import (
	"fmt"
	"os"
	"os/exec"
)

// LocateExecutable resolves bin on PATH and verifies it is an executable
// regular file.
func LocateExecutable(bin string) (string, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("file: locating %q: %w", bin, err)
	}
	if err := CheckExecutable(path); err != nil {
		return path, err
	}
	return path, nil
}

// CheckExecutable returns an error if path is not an executable regular
// file.
func CheckExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file: stat %q: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("file: %q is a directory", path)
	}
	if info.Mode()&0o111 == 0 {
		return fmt.Errorf("file: %q is not executable", path)
	}
	return nil
}

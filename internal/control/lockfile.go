package control

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/medalert/internal/constants"
)

var (
	// ErrDaemonNotRunning is returned when no live daemon owns the lockfile.
	ErrDaemonNotRunning = errors.New("medalert daemon is not running (start it with 'medalert serve')")

	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
)

// LockfilePath returns the daemon lockfile location inside configDir.
func LockfilePath(configDir string) string {
	return filepath.Join(configDir, constants.ControlLockfileName)
}

// WriteLockfile records how to reach the running daemon as "port|pid|secret".
func WriteLockfile(path string, port int, secret string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create lockfile directory: %w", err)
	}
	content := fmt.Sprintf("%d|%d|%s", port, getpidFunc(), secret)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write lockfile: %w", err)
	}
	return nil
}

// RemoveLockfile deletes the lockfile if it still belongs to this process.
func RemoveLockfile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) == 3 && parts[1] != strconv.Itoa(getpidFunc()) {
		// another daemon took over
		return nil
	}
	return os.Remove(path)
}

// ReadLockfile parses the lockfile and checks that its pid is a live daemon.
func ReadLockfile(path string) (port string, secret string, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", "", ErrDaemonNotRunning
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return "", "", errors.New("lockfile is malformed")
	}

	port = parts[0]
	if strings.TrimSpace(port) == "" {
		return "", "", errors.New("port in lockfile is empty")
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return "", "", errors.New("invalid port number in lockfile")
	}
	if portNum < 1 || portNum > 65535 {
		return "", "", fmt.Errorf("port number %d is outside valid range (1-65535)", portNum)
	}

	pid, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", "", errors.New("invalid process ID in lockfile")
	}
	secret = parts[2]
	if strings.TrimSpace(secret) == "" {
		return "", "", errors.New("secret in lockfile is empty")
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return "", "", ErrDaemonNotRunning
	}
	if !strings.HasPrefix(process.Executable(), constants.DaemonExecutable) {
		return "", "", fmt.Errorf("process with PID %d is not %s (is %s)", pid, constants.DaemonExecutable, process.Executable())
	}

	return port, secret, nil
}

//go:build linux || darwin

package timeit

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/rsalesc/go-timeit/pkg/rlimit"
)

const (
	// payloadEnv carries the child bootstrap description across the
	// re-exec boundary. It is scrubbed before the target execs.
	payloadEnv = "TIMEIT_CHILD_PAYLOAD"

	// childArgv0 marks the bootstrap process in ps output.
	childArgv0 = "timeitChild"

	// statusFd is the inherited exec-failure side channel. The child
	// marks it close-on-exec, so the parent reads EOF exactly when the
	// target image takes over and an error message when setup or exec
	// failed.
	statusFd = 3
)

// payload describes everything the child does between spawn and exec.
type payload struct {
	Args []string
	Dir  string

	Stdin  string
	Stdout string
	Stderr string

	// StdinFd, StdoutFd and StderrFd, when nonnegative, select an
	// inherited file for the stream instead of a path.
	StdinFd  int
	StdoutFd int
	StderrFd int

	RLimits rlimit.RLimits
}

func encodePayload(p *payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Init hijacks the current process when it was spawned as a supervisor
// child: it applies the working directory, rlimits and fd redirections
// from the payload, then execs the target argv. Every main package that
// calls Run must call Init first thing in init() (or TestMain). In an
// ordinary process it is a no-op; in a child it never returns, reporting
// any setup or exec failure through the status pipe before exiting.
func Init() {
	enc := os.Getenv(payloadEnv)
	if enc == "" {
		return
	}
	err := childRun(enc)
	// Exec did not happen. The parent discards the exit status once it
	// sees data on the status pipe, so the code here is cosmetic.
	if f := os.NewFile(statusFd, "status"); f != nil {
		fmt.Fprintf(f, "%v", err)
		f.Close()
	}
	os.Exit(127)
}

// childRun performs the bootstrap sequence and only returns on failure.
func childRun(enc string) error {
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}
	if len(p.Args) == 0 {
		return errors.New("empty target argv")
	}
	if _, err := unix.FcntlInt(uintptr(statusFd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		return fmt.Errorf("status pipe cloexec: %w", err)
	}
	if p.Dir != "" {
		if err := os.Chdir(p.Dir); err != nil {
			return fmt.Errorf("chdir: %w", err)
		}
	}
	for _, rl := range p.RLimits.PrepareRLimit() {
		if err := syscall.Setrlimit(rl.Res, &rl.Rlim); err != nil {
			return fmt.Errorf("setrlimit %v: %w", rl, err)
		}
	}
	if err := redirectFds(&p); err != nil {
		return err
	}
	// the target gets the default broken-pipe disposition back
	signal.Reset(syscall.SIGPIPE)

	path, err := exec.LookPath(p.Args[0])
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	if err := unix.Exec(path, p.Args, scrubEnv(os.Environ())); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	return nil
}

// redirectFds points the standard fds at their configured targets:
// stdin read-only, stdout and stderr create-truncate, inherited fds
// dup'd in place. Relative paths resolve against the already-applied
// working directory.
func redirectFds(p *payload) error {
	if p.StdinFd >= 0 {
		if err := dupTo(p.StdinFd, 0); err != nil {
			return fmt.Errorf("dup stdin: %w", err)
		}
		unix.Close(p.StdinFd)
	} else if p.Stdin != "" {
		f, err := os.Open(p.Stdin)
		if err != nil {
			return fmt.Errorf("open stdin: %w", err)
		}
		if err := redirectFile(f, 0); err != nil {
			return err
		}
	}
	if err := redirectOut(p.Stdout, p.StdoutFd, 1); err != nil {
		return err
	}
	return redirectOut(p.Stderr, p.StderrFd, 2)
}

func redirectOut(path string, srcFd, target int) error {
	if srcFd >= 0 {
		if err := dupTo(srcFd, target); err != nil {
			return err
		}
		unix.Close(srcFd)
		return nil
	}
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	return redirectFile(f, target)
}

func redirectFile(f *os.File, target int) error {
	defer f.Close()
	if err := dupTo(int(f.Fd()), target); err != nil {
		return fmt.Errorf("dup %s: %w", f.Name(), err)
	}
	return nil
}

// scrubEnv drops the payload variable so the target never sees it.
func scrubEnv(environ []string) []string {
	out := make([]string, 0, len(environ))
	for _, kv := range environ {
		if strings.HasPrefix(kv, payloadEnv+"=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}

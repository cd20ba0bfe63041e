//go:build linux || darwin

// Package timeit supervises one run of a target program: it spawns the
// target through a re-exec trampoline that installs rlimits and fd
// redirections, polls resource usage against the configured ceilings,
// and folds the reaped exit status into a runner.Result.
package timeit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/rsalesc/go-timeit/config"
	"github.com/rsalesc/go-timeit/pkg/pipe"
	"github.com/rsalesc/go-timeit/pkg/rlimit"
	"github.com/rsalesc/go-timeit/runner"
)

// Alarm notes recorded when an asynchronous check kills the child.
const (
	alarmTimeLimit   = "timelimit"
	alarmWallLimit   = "wall timelimit"
	alarmMemoryLimit = "memorylimit"
	alarmTerminated  = "terminated"
)

// Runner supervises one run of a target program. Fields are read-only
// once Run is called.
type Runner struct {
	// Args is the target argv. Args[0] is resolved against PATH in the
	// child, after the working directory change.
	Args []string
	// Dir is the target's working directory, empty to inherit.
	Dir string
	// Limits are the enforced resource ceilings.
	Limits runner.Limits

	// Stdin, Stdout and Stderr are redirection paths, empty to inherit
	// the supervisor's own stream. Relative paths resolve against Dir.
	Stdin  string
	Stdout string
	Stderr string

	// StdinR, StdoutW and StderrW attach already-open files as the
	// target's standard streams and take precedence over the path
	// fields. Run does not close them. An attached stdout or stderr
	// still combines with Dups, the file then receives the relay's
	// forwarded copy.
	StdinR  *os.File
	StdoutW *os.File
	StderrW *os.File

	// Dups are additional capture destinations for stdout or stderr.
	Dups []Dup
	// Prefix tags every chunk of the Dups that ask for tagging.
	Prefix string

	// PollInterval and DrainGrace override the configured defaults when
	// positive.
	PollInterval time.Duration
	DrainGrace   time.Duration

	// ShowDetails traces the run on stderr.
	ShowDetails bool
}

// Dup is one duplicate destination for a standard stream.
type Dup struct {
	// Stream is 'o' for stdout or 'e' for stderr.
	Stream byte
	// Path is the capture file, opened in append mode so that several
	// runs can share one transcript.
	Path string
	// Tagged prefixes every chunk with the run's Prefix.
	Tagged bool
}

// Run spawns the target under the configured limits and supervises it
// to completion. The returned error reports supervisor-level failures
// only; everything about the target itself, limit violations included,
// is in the Result. Cancelling ctx kills the target's process group and
// marks the run externally terminated.
func (r *Runner) Run(ctx context.Context) (runner.Result, error) {
	sTime := time.Now()
	cfg := config.Load()
	pollEvery := r.PollInterval
	if pollEvery <= 0 {
		pollEvery = cfg.PollInterval
	}
	grace := r.DrainGrace
	if grace <= 0 {
		grace = cfg.DrainGrace
	}
	show := r.ShowDetails || cfg.Debug
	debug := func(v ...any) {
		if show {
			fmt.Fprintln(os.Stderr, v...)
		}
	}

	if len(r.Args) == 0 {
		return runner.Result{}, errors.New("timeit: empty target argv")
	}
	exe, err := os.Executable()
	if err != nil {
		return runner.Result{}, fmt.Errorf("timeit: locate self: %w", err)
	}

	statusR, statusW, err := os.Pipe()
	if err != nil {
		return runner.Result{}, fmt.Errorf("timeit: status pipe: %w", err)
	}

	var (
		extra  = []*os.File{statusW}
		relays []*pipe.Duplicator
		opened []*os.File
	)
	abort := func() {
		statusR.Close()
		statusW.Close()
		for _, d := range relays {
			d.W.Close()
		}
		for _, f := range opened {
			f.Close()
		}
	}
	openDest := func(path string, flag int) (*os.File, error) {
		f, err := os.OpenFile(r.resolvePath(path), os.O_WRONLY|os.O_CREATE|flag, 0o644)
		if err != nil {
			return nil, fmt.Errorf("timeit: open %s: %w", path, err)
		}
		opened = append(opened, f)
		return f, nil
	}
	attach := func(f *os.File) int {
		extra = append(extra, f)
		return statusFd + len(extra) - 1
	}

	// A duplicated stream goes through a pipe, which the kernel
	// file-size backstop cannot see. The relay caps each file
	// destination just above the output ceiling instead.
	var destMax runner.Size
	if r.Limits.Output > 0 {
		destMax = r.Limits.Output + 1
	}
	buildStream := func(stream byte, primary string, primaryFile, inherit *os.File) (int, error) {
		var specs []Dup
		for _, dp := range r.Dups {
			if dp.Stream == stream {
				specs = append(specs, dp)
			}
		}
		if len(specs) == 0 {
			return -1, nil
		}
		// captures before the forward, so a transcript entry always
		// lands before anything the peer says in response to it
		dests := make([]pipe.Dest, 0, len(specs)+1)
		for _, dp := range specs {
			f, err := openDest(dp.Path, os.O_APPEND)
			if err != nil {
				return -1, err
			}
			d := pipe.Dest{W: f, Max: destMax}
			if dp.Tagged {
				d.Prefix = []byte(r.Prefix)
			}
			dests = append(dests, d)
		}
		switch {
		case primaryFile != nil:
			dests = append(dests, pipe.Dest{W: primaryFile})
		case primary != "":
			f, err := openDest(primary, os.O_TRUNC)
			if err != nil {
				return -1, err
			}
			dests = append(dests, pipe.Dest{W: f, Max: destMax})
		default:
			dests = append(dests, pipe.Dest{W: inherit})
		}
		d, err := pipe.New(dests...)
		if err != nil {
			return -1, fmt.Errorf("timeit: duplicator: %w", err)
		}
		relays = append(relays, d)
		return attach(d.W), nil
	}

	stdoutFd, err := buildStream('o', r.Stdout, r.StdoutW, os.Stdout)
	if err != nil {
		abort()
		return runner.Result{}, err
	}
	stderrFd, err := buildStream('e', r.Stderr, r.StderrW, os.Stderr)
	if err != nil {
		abort()
		return runner.Result{}, err
	}
	if stdoutFd < 0 && r.StdoutW != nil {
		stdoutFd = attach(r.StdoutW)
	}
	if stderrFd < 0 && r.StderrW != nil {
		stderrFd = attach(r.StderrW)
	}
	stdinFd := -1
	if r.StdinR != nil {
		stdinFd = attach(r.StdinR)
	}

	p := payload{
		Args:     r.Args,
		Dir:      r.Dir,
		StdinFd:  stdinFd,
		StdoutFd: stdoutFd,
		StderrFd: stderrFd,
		RLimits:  buildRLimits(r.Limits),
	}
	if stdinFd < 0 {
		p.Stdin = r.Stdin
	}
	if stdoutFd < 0 {
		p.Stdout = r.Stdout
	}
	if stderrFd < 0 {
		p.Stderr = r.Stderr
	}
	enc, err := encodePayload(&p)
	if err != nil {
		abort()
		return runner.Result{}, fmt.Errorf("timeit: encode payload: %w", err)
	}

	debug("starting:", r.Args, r.Limits, p.RLimits)
	cmd := &exec.Cmd{
		Path:        exe,
		Args:        []string{childArgv0},
		Env:         append(os.Environ(), payloadEnv+"="+enc),
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		ExtraFiles:  extra,
		SysProcAttr: &syscall.SysProcAttr{Setpgid: true},
	}
	if err := cmd.Start(); err != nil {
		abort()
		return runner.Result{}, fmt.Errorf("timeit: spawn: %w", err)
	}
	spawned := time.Now()
	pid := cmd.Process.Pid

	// child-held ends stay open in the child only
	statusW.Close()
	for _, d := range relays {
		d.W.Close()
	}

	execErr := make(chan string, 1)
	go func() {
		data, _ := io.ReadAll(statusR)
		statusR.Close()
		if len(data) > 0 {
			execErr <- string(data)
		}
		close(execErr)
	}()

	var (
		mu        sync.Mutex
		alarmMsg  string
		cancelled bool
		peak      runner.Size
	)
	// first violation wins, later ones never overwrite it
	kill := func(msg string, external bool) {
		mu.Lock()
		if external {
			cancelled = true
		}
		if alarmMsg == "" {
			alarmMsg = msg
		}
		mu.Unlock()
		unix.Kill(-pid, unix.SIGKILL)
	}

	smp := newSampler(pid)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		tick := time.NewTicker(pollEvery)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				if msg := r.checkLimits(smp, spawned, &peak); msg != "" {
					debug("limit tripped:", msg)
					kill(msg, false)
					return
				}
			}
		}
	}()
	go func() {
		defer wg.Done()
		select {
		case <-stop:
		case <-ctx.Done():
			debug("externally terminated")
			kill(alarmTerminated, true)
		}
	}()

	werr := cmd.Wait()
	eTime := time.Now()
	close(stop)
	wg.Wait()

	var ee *exec.ExitError
	if werr != nil && !errors.As(werr, &ee) {
		for _, f := range opened {
			f.Close()
		}
		return runner.Result{}, fmt.Errorf("timeit: wait: %w", werr)
	}
	if msg, ok := <-execErr; ok {
		for _, f := range opened {
			f.Close()
		}
		return runner.Result{}, fmt.Errorf("timeit: child: %s", msg)
	}

	for _, d := range relays {
		select {
		case <-d.Done:
		case <-time.After(grace):
			debug("relay drain grace expired")
		}
	}
	for _, f := range opened {
		f.Close()
	}

	ws, _ := cmd.ProcessState.Sys().(syscall.WaitStatus)
	ru, _ := cmd.ProcessState.SysUsage().(*syscall.Rusage)
	rp := reaped{
		wall:      eTime.Sub(spawned),
		output:    r.outputBytes(),
		alarm:     alarmMsg,
		cancelled: cancelled,
	}
	if ws.Signaled() {
		rp.signaled = true
		rp.sig = ws.Signal()
	} else {
		rp.exitCode = ws.ExitStatus()
	}
	if ru != nil {
		rp.cpu = time.Duration(ru.Utime.Nano() + ru.Stime.Nano())
		rp.mem = normalizeMemory(ru)
	}
	if peak > rp.mem {
		rp.mem = peak
	}

	res := derive(r.Limits, rp)
	res.SetUpTime = spawned.Sub(sTime)
	res.RunningTime = eTime.Sub(spawned)
	debug("results:", res)
	return res, nil
}

// checkLimits is the poll body: non-blocking, first violation wins. The
// CPU budget is a soft timeout, elapsed wall time counts against it too,
// so a child sleeping without consuming CPU still times out.
func (r *Runner) checkLimits(s *sampler, start time.Time, peak *runner.Size) string {
	wall := time.Since(start)
	cpu, rss := s.sample()
	if rss > *peak {
		*peak = rss
	}
	l := r.Limits
	if l.WallTime > 0 && wall > l.WallTime {
		return alarmWallLimit
	}
	if l.Time > 0 && (cpu > l.Time || wall > l.Time) {
		return alarmTimeLimit
	}
	if l.Memory > 0 && rss > l.Memory {
		return alarmMemoryLimit
	}
	return ""
}

// reaped carries the raw facts about a finished child into derive.
type reaped struct {
	signaled  bool
	sig       syscall.Signal
	exitCode  int
	cpu       time.Duration
	wall      time.Duration
	mem       runner.Size
	output    runner.Size
	alarm     string
	cancelled bool
}

// derive applies the status rules to the reaped facts: a positive exit
// code sets RE, signal death sets SG, the CPU ceiling sets TO and clamps
// the reported CPU time to the ceiling, the wall ceiling sets WT and TO,
// the memory and output ceilings set ML and OL, external cancellation
// sets TE. A kill decided by the poll loop counts against its ceiling
// even when the measured value ended up below it, but only when the kill
// actually landed: a limit alarm recorded after the child already exited
// on its own is discarded and the reaped measurements decide alone.
func derive(l runner.Limits, rp reaped) runner.Result {
	alarm := rp.alarm
	if !rp.signaled && alarm != alarmTerminated {
		alarm = ""
	}
	res := runner.Result{
		AlarmMsg: alarm,
		Time:     rp.cpu,
		WallTime: rp.wall,
		Memory:   rp.mem,
		Output:   rp.output,
	}
	if rp.signaled {
		res.ExitSig = int(rp.sig)
		res.ExitCode = -int(rp.sig)
		res.Status |= runner.StatusSG
	} else {
		res.ExitCode = rp.exitCode
		if res.ExitCode > 0 {
			res.Status |= runner.StatusRE
		}
	}
	if l.Time > 0 && (rp.cpu > l.Time || (rp.signaled && rp.sig == syscall.SIGXCPU) || alarm == alarmTimeLimit) {
		res.Status |= runner.StatusTO
		res.Time = l.Time
	}
	if l.WallTime > 0 && rp.wall > l.WallTime {
		res.Status |= runner.StatusWT | runner.StatusTO
	}
	if l.Memory > 0 && (rp.mem > l.Memory || alarm == alarmMemoryLimit) {
		res.Status |= runner.StatusML
	}
	if l.Output > 0 && rp.output > l.Output {
		res.Status |= runner.StatusOL
	}
	if rp.cancelled {
		res.Status |= runner.StatusTE
	}
	return res
}

// buildRLimits is the kernel backstop behind the polled limits: the CPU
// ceiling rounded up to whole seconds with one second of hard grace, and
// the file-size ceiling set just above the soft output limit.
func buildRLimits(l runner.Limits) rlimit.RLimits {
	var rl rlimit.RLimits
	if l.Time > 0 {
		soft := uint64((l.Time.Milliseconds() + 999) / 1000)
		rl.CPU = soft
		rl.CPUHard = soft + 1
	}
	if l.Output > 0 {
		rl.FileSize = l.Output + 1
		rl.FileSizeHard = l.Output * 2
	}
	rl.StackUnlimited = childStackUnlimited
	return rl
}

// resolvePath mirrors the child's view of a relative redirection path,
// which it opens after changing directory.
func (r *Runner) resolvePath(p string) string {
	if p == "" || r.Dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.Dir, p)
}

// outputBytes sums the sizes of the configured stdout and stderr
// targets. Missing files count as zero.
func (r *Runner) outputBytes() runner.Size {
	var total uint64
	for _, p := range []string{r.Stdout, r.Stderr} {
		if p == "" {
			continue
		}
		fi, err := os.Stat(r.resolvePath(p))
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		total += uint64(fi.Size())
	}
	return runner.Size(total)
}

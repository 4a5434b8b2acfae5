//go:build linux

package svcwrap

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

// Systemd unit layout
const (
	// DefaultUnitDir is where unit files are written
	DefaultUnitDir = "/etc/systemd/system"

	// DefaultSystemctlPath is the systemctl binary looked up in PATH
	DefaultSystemctlPath = "systemctl"

	// DefaultSystemctlTimeout bounds every systemctl invocation
	DefaultSystemctlTimeout = 10 * time.Second

	launchDropIn      = "50-svcwrap-launch.conf"
	descriptionDropIn = "40-svcwrap-description.conf"
	unitFileMode      = 0o644
	dropInDirMode     = 0o755
)

// Systemd binds to systemd. A registration is a unit file in UnitDir; start
// arguments are written to a drop-in that overrides ExecStart before each
// start, since systemctl cannot pass arguments itself.
type Systemd struct {
	// UnitDir is the directory where unit files are written
	UnitDir string

	// SystemctlPath is the path to the systemctl binary
	SystemctlPath string

	// UseSudo runs systemctl and privileged file operations through SudoCommand
	UseSudo bool

	// SudoCommand is the sudo command to use (default: "sudo")
	SudoCommand string

	// Timeout bounds each systemctl invocation
	Timeout time.Duration
}

// NewSystemd creates a Systemd binding for the system instance
func NewSystemd() *Systemd {
	return &Systemd{
		UnitDir:       DefaultUnitDir,
		SystemctlPath: DefaultSystemctlPath,
		UseSudo:       os.Geteuid() != 0,
		SudoCommand:   "sudo",
		Timeout:       DefaultSystemctlTimeout,
	}
}

// DefaultPlatform returns the native service manager binding
func DefaultPlatform() Platform {
	return NewSystemd()
}

func newSystemd() (Platform, error) {
	return NewSystemd(), nil
}

// WithSudo configures sudo usage
func (p *Systemd) WithSudo(use bool, command string) *Systemd {
	p.UseSudo = use
	if command != "" {
		p.SudoCommand = command
	}
	return p
}

// WithUnitDir sets the unit directory
func (p *Systemd) WithUnitDir(dir string) *Systemd {
	p.UnitDir = dir
	return p
}

// WithSystemctlPath sets the systemctl binary
func (p *Systemd) WithSystemctlPath(path string) *Systemd {
	p.SystemctlPath = path
	return p
}

// Name returns "systemd"
func (p *Systemd) Name() string {
	return platformSystemdStr
}

// Connect checks that the unit directory is reachable
func (p *Systemd) Connect(access ManagerAccess) (ServiceManager, error) {
	info, err := os.Stat(p.UnitDir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %w", ErrAccessDenied, err)
		}
		return nil, fmt.Errorf("unit directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("unit directory %s is not a directory", p.UnitDir)
	}
	return &systemdManager{p: p, access: access}, nil
}

func (p *Systemd) unitName(name string) string {
	return name + ".service"
}

func (p *Systemd) unitPath(name string) string {
	return filepath.Join(p.UnitDir, p.unitName(name))
}

func (p *Systemd) dropInDir(name string) string {
	return p.unitPath(name) + ".d"
}

// execSystemctl executes a systemctl command with optional sudo
func (p *Systemd) execSystemctl(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
	defer cancel()

	return p.run(ctx, nil, p.SystemctlPath, args...)
}

func (p *Systemd) run(ctx context.Context, stdin []byte, name string, args ...string) (string, error) {
	var cmd *exec.Cmd
	if p.UseSudo {
		cmd = exec.CommandContext(ctx, p.SudoCommand, append([]string{name}, args...)...)
	} else {
		cmd = exec.CommandContext(ctx, name, args...)
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w (stderr: %s)", filepath.Base(name), strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// writeFile writes content atomically, through sudo tee when necessary
func (p *Systemd) writeFile(path string, content string) error {
	if !p.UseSudo {
		if err := os.MkdirAll(filepath.Dir(path), dropInDirMode); err != nil {
			return err
		}
		return renameio.WriteFile(path, []byte(content), unitFileMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
	defer cancel()

	if _, err := p.run(ctx, nil, "mkdir", "-p", filepath.Dir(path)); err != nil {
		return err
	}
	_, err := p.run(ctx, []byte(content), "tee", path)
	return err
}

func (p *Systemd) removeAll(paths ...string) error {
	if !p.UseSudo {
		for _, path := range paths {
			if err := os.RemoveAll(path); err != nil {
				return err
			}
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
	defer cancel()

	_, err := p.run(ctx, nil, "rm", append([]string{"-rf"}, paths...)...)
	return err
}

func (p *Systemd) daemonReload() error {
	_, err := p.execSystemctl("daemon-reload")
	return err
}

type systemdManager struct {
	p      *Systemd
	access ManagerAccess
}

func (m *systemdManager) CreateService(rec ServiceRecord, access ServiceAccess) (ServiceHandle, error) {
	if !m.access.Has(ManagerCreateService) {
		return nil, fmt.Errorf("%w: connection lacks create rights", ErrAccessDenied)
	}

	path := m.p.unitPath(rec.Name)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrServiceExists, path)
	}

	unit, err := RenderUnit(rec)
	if err != nil {
		return nil, err
	}
	if err := m.p.writeFile(path, unit); err != nil {
		return nil, fmt.Errorf("writing unit file: %w", err)
	}
	if err := m.p.daemonReload(); err != nil {
		return nil, err
	}

	return &systemdUnit{p: m.p, name: rec.Name, access: access}, nil
}

func (m *systemdManager) OpenService(name string, access ServiceAccess) (ServiceHandle, error) {
	path := m.p.unitPath(name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, path)
		}
		return nil, err
	}
	return &systemdUnit{p: m.p, name: name, access: access}, nil
}

func (m *systemdManager) Close() error {
	return nil
}

type systemdUnit struct {
	p      *Systemd
	name   string
	access ServiceAccess
}

func (u *systemdUnit) require(want ServiceAccess, op string) error {
	if !u.access.Has(want) {
		return fmt.Errorf("%w: %s on %s", ErrAccessDenied, op, u.p.unitName(u.name))
	}
	return nil
}

// Start rewrites the launch drop-in so ExecStart carries args, then starts
func (u *systemdUnit) Start(args ...string) error {
	if err := u.require(AccessStart, "start"); err != nil {
		return err
	}

	base, err := readExecStart(u.p.unitPath(u.name))
	if err != nil {
		return err
	}

	var dropIn strings.Builder
	dropIn.WriteString("[Service]\n")
	dropIn.WriteString("ExecStart=\n")
	dropIn.WriteString(fmt.Sprintf("ExecStart=%s\n", joinExecArgs(base, args)))

	if err := u.p.writeFile(filepath.Join(u.p.dropInDir(u.name), launchDropIn), dropIn.String()); err != nil {
		return fmt.Errorf("writing launch drop-in: %w", err)
	}
	if err := u.p.daemonReload(); err != nil {
		return err
	}

	_, err = u.p.execSystemctl("start", u.p.unitName(u.name))
	return err
}

func (u *systemdUnit) Stop() error {
	if err := u.require(AccessStop, "stop"); err != nil {
		return err
	}
	_, err := u.p.execSystemctl("stop", u.p.unitName(u.name))
	return err
}

func (u *systemdUnit) Query() (State, error) {
	if err := u.require(AccessQueryStatus, "query"); err != nil {
		return StateUnknown, err
	}
	out, err := u.p.execSystemctl("show", "-p", "ActiveState", "--value", u.p.unitName(u.name))
	if err != nil {
		return StateUnknown, err
	}
	return systemdState(strings.TrimSpace(out)), nil
}

func (u *systemdUnit) SetDescription(text string) error {
	if err := u.require(AccessChangeConfig, "set description"); err != nil {
		return err
	}
	content := fmt.Sprintf("[Unit]\nDescription=%s\n", escapeUnitValue(text))
	if err := u.p.writeFile(filepath.Join(u.p.dropInDir(u.name), descriptionDropIn), content); err != nil {
		return fmt.Errorf("writing description drop-in: %w", err)
	}
	return u.p.daemonReload()
}

func (u *systemdUnit) Delete() error {
	if err := u.require(AccessDelete, "delete"); err != nil {
		return err
	}

	path := u.p.unitPath(u.name)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, path)
	}
	if err := u.p.removeAll(u.p.dropInDir(u.name), path); err != nil {
		return fmt.Errorf("removing unit: %w", err)
	}
	return u.p.daemonReload()
}

func (u *systemdUnit) Close() error {
	return nil
}

// RenderUnit generates the unit file for a registration request
func RenderUnit(rec ServiceRecord) (string, error) {
	if rec.Name == "" {
		return "", ErrEmptyName
	}
	if rec.ExecutablePath == "" {
		return "", fmt.Errorf("executable path not specified")
	}

	description := rec.DisplayName
	if description == "" {
		description = rec.Name
	}

	var unit strings.Builder

	unit.WriteString("[Unit]\n")
	unit.WriteString(fmt.Sprintf("Description=%s\n", escapeUnitValue(description)))
	if len(rec.Dependencies) > 0 {
		deps := make([]string, 0, len(rec.Dependencies))
		for _, d := range rec.Dependencies {
			deps = append(deps, d+".service")
		}
		unit.WriteString(fmt.Sprintf("Requires=%s\n", strings.Join(deps, " ")))
		unit.WriteString(fmt.Sprintf("After=%s\n", strings.Join(deps, " ")))
	}
	unit.WriteString("# Managed by svcwrap\n")
	unit.WriteString("\n")

	unit.WriteString("[Service]\n")
	unit.WriteString("Type=simple\n")
	unit.WriteString("Restart=no\n")
	unit.WriteString("KillMode=mixed\n")
	unit.WriteString("KillSignal=SIGTERM\n")
	unit.WriteString("TimeoutStopSec=10\n")
	if rec.Account != "" {
		unit.WriteString(fmt.Sprintf("User=%s\n", rec.Account))
	}
	unit.WriteString(fmt.Sprintf("ExecStart=%s\n", joinExecArgs(quoteExecArg(rec.ExecutablePath), rec.Arguments)))
	unit.WriteString("StandardOutput=journal\n")
	unit.WriteString("StandardError=journal\n")

	if rec.StartType == StartAutomatic {
		unit.WriteString("\n")
		unit.WriteString("[Install]\n")
		unit.WriteString("WantedBy=multi-user.target\n")
	}

	return unit.String(), nil
}

// readExecStart returns the first ExecStart value of a unit file
func readExecStart(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrServiceNotFound, path)
		}
		return "", err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if v, ok := strings.CutPrefix(line, "ExecStart="); ok && v != "" {
			return v, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no ExecStart in %s", path)
}

func joinExecArgs(base string, args []string) string {
	line := base
	for _, a := range args {
		line += " " + quoteExecArg(a)
	}
	return line
}

// quoteExecArg quotes args with spaces or special characters and escapes
// systemd specifiers
func quoteExecArg(arg string) string {
	arg = strings.ReplaceAll(arg, "%", "%%")
	arg = strings.ReplaceAll(arg, "$", "$$")
	if arg == "" || strings.ContainsAny(arg, " \t\n\"'\\$;") {
		arg = fmt.Sprintf("%q", arg)
	}
	return arg
}

func escapeUnitValue(s string) string {
	s = strings.ReplaceAll(s, "%", "%%")
	return strings.ReplaceAll(s, "\n", " ")
}

func systemdState(activeState string) State {
	switch activeState {
	case "active", "reloading":
		return StateRunning
	case "activating":
		return StateStartPending
	case "deactivating":
		return StateStopPending
	case "inactive", "failed":
		return StateStopped
	default:
		return StateUnknown
	}
}

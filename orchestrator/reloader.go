package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
	"github.com/ruteri/ergo-devnet-provisioning/nodeconfig"
)

// CommandRunner executes an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// ComposeReloader restarts a node's compose service after its key was rotated.
type ComposeReloader struct {
	command     []string
	composeFile string
	layout      nodeconfig.Layout
	timeout     time.Duration
	run         CommandRunner
	log         *slog.Logger
}

// NewComposeReloader creates a reloader invoking binary (for example "docker compose"
// or "docker-compose") against composeFile. A nil runner uses ExecRunner.
func NewComposeReloader(binary, composeFile string, layout nodeconfig.Layout, run CommandRunner, log *slog.Logger) (*ComposeReloader, error) {
	command := strings.Fields(binary)
	if len(command) == 0 {
		return nil, errors.New("compose binary is required")
	}
	if run == nil {
		run = ExecRunner
	}
	if log == nil {
		log = slog.Default()
	}

	return &ComposeReloader{
		command:     command,
		composeFile: composeFile,
		layout:      layout,
		timeout:     2 * time.Minute,
		run:         run,
		log:         log,
	}, nil
}

// Reload runs `<binary> -f <compose file> restart <service>`.
func (r *ComposeReloader) Reload(ctx context.Context, node interfaces.NodeID) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	service := r.layout.ServiceName(node)
	args := append(append([]string{}, r.command[1:]...), "-f", r.composeFile, "restart", service)

	start := time.Now()
	out, err := r.run(ctx, r.command[0], args...)
	if err != nil {
		r.log.Debug("Compose restart output", slog.String("service", service), slog.String("output", string(out)))
		return fmt.Errorf("%s restart %s: %w: %s", strings.Join(r.command, " "), service, err, strings.TrimSpace(string(out)))
	}

	r.log.Info("Restarted node service",
		slog.String("service", service),
		slog.Duration("duration", time.Since(start)))
	return nil
}

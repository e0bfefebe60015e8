package consumer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"fc-market-lab/internal/domain"
)

var (
	// ErrToolingUnavailable is returned when the pipeline command cannot be found.
	ErrToolingUnavailable = errors.New("pipeline tooling unavailable")

	// ErrPipelineFailed is returned when the pipeline exits non-zero.
	ErrPipelineFailed = errors.New("pipeline failed")
)

// PipelineError carries the diagnostics of a failed pipeline run.
type PipelineError struct {
	ExitCode int
	Stderr   string // captured verbatim
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline exited with code %d: %s", e.ExitCode, e.Stderr)
}

func (e *PipelineError) Unwrap() error {
	return ErrPipelineFailed
}

// Launcher makes sure the artifact exists, running the pipeline if needed.
type Launcher struct {
	Command      string   // executable name or path
	Args         []string // arguments passed to Command
	ArtifactPath string
	Dir          string // working directory, empty = current
	Force        bool   // rerun even when the artifact exists

	logger zerolog.Logger
}

// NewLauncher creates a launcher.
func NewLauncher(artifactPath, command string, args ...string) *Launcher {
	return &Launcher{
		Command:      command,
		Args:         args,
		ArtifactPath: artifactPath,
		logger:       zerolog.Nop(),
	}
}

// WithLogger sets the logger.
func (l *Launcher) WithLogger(logger zerolog.Logger) *Launcher {
	l.logger = logger.With().Str("component", "launcher").Logger()
	return l
}

// Ensure returns the artifact contents. When the artifact is absent (or
// Force is set) the pipeline runs to completion first.
func (l *Launcher) Ensure(ctx context.Context) ([]*domain.Recommendation, error) {
	if !l.Force {
		if _, err := os.Stat(l.ArtifactPath); err == nil {
			l.logger.Debug().Str("artifact", l.ArtifactPath).Msg("reusing existing artifact")
			return ReadArtifact(l.ArtifactPath)
		}
	}

	if err := l.run(ctx); err != nil {
		return nil, err
	}

	if _, err := os.Stat(l.ArtifactPath); err != nil {
		return nil, fmt.Errorf("after pipeline run %s: %w", l.ArtifactPath, ErrArtifactMissing)
	}
	return ReadArtifact(l.ArtifactPath)
}

func (l *Launcher) run(ctx context.Context) error {
	bin, err := exec.LookPath(l.Command)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", l.Command, ErrToolingUnavailable)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, l.Args...)
	cmd.Dir = l.Dir
	cmd.Stderr = &stderr

	start := time.Now()
	l.logger.Info().Str("command", bin).Strs("args", l.Args).Msg("launching pipeline")

	err = cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &PipelineError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return fmt.Errorf("run %s: %w", bin, err)
	}

	l.logger.Info().Dur("duration", time.Since(start)).Msg("pipeline finished")
	return nil
}

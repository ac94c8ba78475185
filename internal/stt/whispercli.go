package stt

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// WhisperCLI transcribes by running the whisper.cpp command-line binary as a
// subprocess. Output is the bare transcript: -np suppresses progress, -nt
// suppresses timestamps.
type WhisperCLI struct {
	bin   string
	model string
}

// NewWhisperCLI creates a subprocess-backed transcriber
func NewWhisperCLI(bin, model string) (*WhisperCLI, error) {
	if bin == "" {
		return nil, fmt.Errorf("whisper: binary path must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("whisper: model path must not be empty")
	}
	return &WhisperCLI{bin: bin, model: model}, nil
}

// Transcribe implements Transcriber
func (w *WhisperCLI) Transcribe(ctx context.Context, audioPath string) (string, error) {
	abs, err := filepath.Abs(audioPath)
	if err != nil {
		return "", fmt.Errorf("whisper: resolve audio path: %w", err)
	}

	cmd := exec.CommandContext(ctx, w.bin, w.args(abs)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("whisper: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}

func (w *WhisperCLI) args(audioPath string) []string {
	return []string{"-f", audioPath, "-m", w.model, "-np", "-nt"}
}

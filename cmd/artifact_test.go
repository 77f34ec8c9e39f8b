package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/marcus/vault/internal/config"
	"github.com/marcus/vault/internal/models"
)

func TestAllowedArtifactPath(t *testing.T) {
	home := t.TempDir()
	oldCfg := cfg
	cfg = &config.Config{Home: home}
	t.Cleanup(func() { cfg = oldCfg })

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	got, err := allowedArtifactPath("notes/paper.pdf")
	if err != nil {
		t.Fatalf("relative path under the working directory rejected: %v", err)
	}
	if got != filepath.Join(wd, "notes", "paper.pdf") {
		t.Errorf("resolved path = %q", got)
	}

	if _, err := allowedArtifactPath(filepath.Join(home, "exports", "x.md")); err != nil {
		t.Errorf("path under the vault home rejected: %v", err)
	}

	if _, err := allowedArtifactPath("/etc/passwd"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("outside path error = %v, want ErrValidation", err)
	}
	if _, err := allowedArtifactPath(filepath.Join(home, "..", "other", "f")); !errors.Is(err, models.ErrValidation) {
		t.Errorf("traversal out of home error = %v, want ErrValidation", err)
	}
}

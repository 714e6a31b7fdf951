package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The fixture has no remote endpoint configured, so every write goes
// through the offline queue.
func TestSmokeOfflineFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	require.NoError(t, writeConfigFixture(home))

	_, stderr, err := runFelicare(t, binaryPath, home,
		"log", "med",
		"--name", "amlodipine",
		"--dose", "0.625",
		"--unit", "mg",
		"--at", "08:05",
	)
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err := runFelicare(t, binaryPath, home, "queue")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "1 operation(s) waiting to sync")
	assert.Contains(t, stdout, "create_medication_session")

	stdout, stderr, err = runFelicare(t, binaryPath, home, "today")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Miso on")
	assert.Contains(t, stdout, "medications: 1 session(s)")
	assert.Contains(t, stdout, "offline: 1 operation(s) waiting to sync")

	// The queued entry already counts toward the day, so the matching
	// slot reads as done.
	assert.Contains(t, stdout, "[x]")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "felicare-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/felicare")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build felicare binary: %s", string(output))
	return binaryPath
}

func runFelicare(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func writeConfigFixture(home string) error {
	configDir := filepath.Join(home, ".felicare")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	config := `[profile]
owner = "owner-1"
subject = "Miso"

[[schedules]]
id = "sched-amlo"
kind = "medication"
medication = "amlodipine"
dose = 0.625
unit = "mg"
times = ["08:00", "20:00"]

[[schedules]]
id = "sched-fluids"
kind = "fluid"
volume = 100.0
times = ["18:00"]
`

	return os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(config), 0o644)
}

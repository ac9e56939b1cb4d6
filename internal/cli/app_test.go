package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/pwkeeper/internal/clierror"
	"github.com/atinyakov/pwkeeper/internal/config"
	"github.com/atinyakov/pwkeeper/internal/crypto"
	vaulterrors "github.com/atinyakov/pwkeeper/internal/errors"
)

// scriptedPrompter answers prompts in order and records what was asked.
type scriptedPrompter struct {
	answers []string
	prompts []string
}

func (p *scriptedPrompter) next(prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if len(p.answers) == 0 {
		return "", errors.New("unexpected prompt: " + prompt)
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func (p *scriptedPrompter) Password(prompt string) (string, error) { return p.next(prompt) }
func (p *scriptedPrompter) Line(prompt string) (string, error)     { return p.next(prompt) }

type fakeClipboard struct {
	text string
	err  error
}

func (c *fakeClipboard) WriteAll(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

type harness struct {
	dir       string
	clipboard *fakeClipboard
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	for _, env := range []string{config.EnvConfig, config.EnvStore, config.EnvDSN, config.EnvPath, config.EnvLogLevel} {
		t.Setenv(env, "")
	}
	return &harness{dir: t.TempDir(), clipboard: &fakeClipboard{}}
}

// run executes one pwkeeper invocation against the harness data directory.
func (h *harness) run(t *testing.T, store string, answers []string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := &App{
		Prompter:  &scriptedPrompter{answers: answers},
		Clipboard: h.clipboard,
		Out:       &out,
		Err:       &errOut,
		Envelope:  crypto.NewEnvelope(crypto.PBKDF2{Iterations: 1000}),
		Logger:    zap.NewNop(),
		Version:   "1.2.3",
	}
	root := NewRootCmd(app)
	root.SetArgs(append([]string{"--store", store, "--path", h.dir}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestCLI_EndToEnd(t *testing.T) {
	for _, store := range []string{config.StoreSQLite, config.StoreBolt, config.StoreFile} {
		t.Run(store, func(t *testing.T) {
			h := newHarness(t)

			_, stderr, err := h.run(t, store, []string{"hunter2", "hunter2"}, "init")
			require.NoError(t, err)
			assert.Contains(t, stderr, "creating a new one")

			_, _, err = h.run(t, store, []string{"hunter2", "alice", "s3cret", "s3cret"}, "put", "github")
			require.NoError(t, err)
			_, _, err = h.run(t, store, []string{"hunter2", "bob-pw", "bob-pw"}, "new", "bank", "--info", "bob")
			require.NoError(t, err)

			_, _, err = h.run(t, store, []string{"hunter2"}, "get", "github")
			require.NoError(t, err)
			assert.Equal(t, "s3cret", h.clipboard.text)

			stdout, _, err := h.run(t, store, []string{"hunter2"}, "get", "bank", "--info")
			require.NoError(t, err)
			assert.Equal(t, "bob", h.clipboard.text)
			assert.NotContains(t, stdout, "bob", "secrets never reach stdout")

			stdout, _, err = h.run(t, store, []string{"hunter2"}, "list")
			require.NoError(t, err)
			assert.Equal(t, "bank\ngithub\n", stdout)

			_, _, err = h.run(t, store, []string{"wrong"}, "list")
			assert.ErrorIs(t, err, vaulterrors.ErrAuthenticationFailure)
			assert.Equal(t, clierror.ExitAuth, clierror.ExitCode(err))

			_, _, err = h.run(t, store, []string{"hunter2"}, "delete", "bank")
			require.NoError(t, err)
			_, _, err = h.run(t, store, []string{"hunter2"}, "get", "bank")
			assert.Equal(t, clierror.ExitNotFound, clierror.ExitCode(err))
		})
	}
}

func TestCLI_PutExistingFailsBeforePrompting(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run(t, config.StoreFile, []string{"pw", "pw", "i", "s", "s"}, "put", "x")
	require.NoError(t, err)

	_, _, err = h.run(t, config.StoreFile, []string{"pw"}, "put", "x")
	assert.ErrorIs(t, err, vaulterrors.ErrAlreadyExists)
	assert.Equal(t, clierror.ExitAlreadyExists, clierror.ExitCode(err))
}

func TestCLI_PutSecretMismatch(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run(t, config.StoreFile, []string{"pw", "pw", "info", "one", "two"}, "put", "x")
	assert.ErrorIs(t, err, errPasswordMismatch)

	stdout, _, err := h.run(t, config.StoreFile, []string{"pw"}, "list")
	require.NoError(t, err)
	assert.Empty(t, stdout)
}

func TestCLI_NewVaultPasswordMismatch(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run(t, config.StoreFile, []string{"one", "two"}, "init")
	assert.ErrorIs(t, err, errPasswordMismatch)

	// Nothing was provisioned, so the next run still offers to create a vault.
	_, stderr, err := h.run(t, config.StoreFile, []string{"pw", "pw"}, "init")
	require.NoError(t, err)
	assert.Contains(t, stderr, "creating a new one")
}

func TestCLI_ChangePassword(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run(t, config.StoreBolt, []string{"old", "old", "i", "s", "s"}, "put", "x")
	require.NoError(t, err)

	_, _, err = h.run(t, config.StoreBolt, []string{"old", "new", "new"}, "change-password")
	require.NoError(t, err)

	_, _, err = h.run(t, config.StoreBolt, []string{"old"}, "get", "x")
	assert.ErrorIs(t, err, vaulterrors.ErrAuthenticationFailure)

	_, _, err = h.run(t, config.StoreBolt, []string{"new"}, "get", "x")
	require.NoError(t, err)
	assert.Equal(t, "s", h.clipboard.text)
}

func TestCLI_Reset(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run(t, config.StoreSQLite, []string{"pw", "pw", "i", "s", "s"}, "put", "x")
	require.NoError(t, err)

	_, stderr, err := h.run(t, config.StoreSQLite, []string{"pw", "no"}, "reset")
	require.NoError(t, err)
	assert.Contains(t, stderr, "cancelled")

	_, _, err = h.run(t, config.StoreSQLite, []string{"pw"}, "reset", "--yes")
	require.NoError(t, err)

	_, stderr, err = h.run(t, config.StoreSQLite, []string{"fresh", "fresh"}, "list")
	require.NoError(t, err)
	assert.Contains(t, stderr, "creating a new one")
}

func TestCLI_ClipboardFailure(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run(t, config.StoreFile, []string{"pw", "pw", "i", "s", "s"}, "put", "x")
	require.NoError(t, err)

	h.clipboard.err = errors.New("no display")
	_, _, err = h.run(t, config.StoreFile, []string{"pw"}, "get", "x")
	assert.ErrorContains(t, err, "copy to clipboard")
}

func TestCLI_Version(t *testing.T) {
	h := newHarness(t)
	stdout, _, err := h.run(t, config.StoreFile, nil, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "Build version: 1.2.3\n"))
	assert.Contains(t, stdout, "Build date: N/A")
}

func TestCLI_InvalidStore(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run(t, "redis", nil, "list")
	assert.ErrorContains(t, err, "unknown store")
}

func TestCLI_LogsToErrWriter(t *testing.T) {
	h := newHarness(t)
	var out, errOut bytes.Buffer
	app := &App{
		Prompter:  &scriptedPrompter{answers: []string{"pw", "pw"}},
		Clipboard: h.clipboard,
		Out:       &out,
		Err:       &errOut,
		Envelope:  crypto.NewEnvelope(crypto.PBKDF2{Iterations: 1000}),
	}
	root := NewRootCmd(app)
	root.SetArgs([]string{"--store", config.StoreFile, "--path", h.dir, "--verbose", "init"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, errOut.String(), "vault provisioned")
	assert.Contains(t, errOut.String(), "authenticated")
	assert.NotContains(t, errOut.String(), "\x1b[", "non-terminal output carries no color codes")
	assert.Empty(t, out.String())
}

package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gmailagent/internal/config"
	"github.com/teemow/gmailagent/internal/mailagent"
)

type fakeRunner struct {
	authorized bool
	prompts    []string
	err        error
}

func (f *fakeRunner) Authorize(context.Context) error {
	f.authorized = true
	return f.err
}

func (f *fakeRunner) Query(_ context.Context, prompt string) error {
	f.prompts = append(f.prompts, prompt)
	return f.err
}

type harness struct {
	runner   *fakeRunner
	built    int
	cleaned  int
	creds    config.Credentials
	settings config.Settings
}

func (h *harness) factory(_ *cobra.Command, creds config.Credentials, settings config.Settings) (runner, func(), error) {
	h.built++
	h.creds = creds
	h.settings = settings
	return h.runner, func() { h.cleaned++ }, nil
}

func execute(t *testing.T, h *harness, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(h.factory)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRoot_MissingAPIKey(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "")
	h := &harness{runner: &fakeRunner{}}

	out, err := execute(t, h)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
	assert.Contains(t, out, config.EnvAPIKey)
	assert.Equal(t, 0, h.built)
}

func TestRoot_MissingAPIKeyWithAuth(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "   ")
	h := &harness{runner: &fakeRunner{}}

	_, err := execute(t, h, "--auth")
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
	assert.False(t, h.runner.authorized)
	assert.Equal(t, 0, h.built)
}

func TestRoot_DefaultQuery(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "ak_test")
	t.Setenv(config.EnvUserID, "user-1")
	h := &harness{runner: &fakeRunner{}}

	_, err := execute(t, h)
	require.NoError(t, err)
	assert.Equal(t, []string{"列出最新 5 封郵件，顯示寄件者、主旨和時間"}, h.runner.prompts)
	assert.Equal(t, mailagent.DefaultQuery, h.runner.prompts[0])
	assert.Equal(t, "ak_test", h.creds.APIKey)
	assert.Equal(t, "user-1", h.creds.UserID)
	assert.Equal(t, 1, h.cleaned)
}

func TestRoot_QueryFlag(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "ak_test")

	tests := []struct {
		name string
		args []string
	}{
		{"long flag", []string{"--query", "unread from Alice"}},
		{"short flag", []string{"-q", "unread from Alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &harness{runner: &fakeRunner{}}
			_, err := execute(t, h, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, []string{"unread from Alice"}, h.runner.prompts)
			assert.False(t, h.runner.authorized)
		})
	}
}

func TestRoot_Auth(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "ak_test")
	t.Setenv(config.EnvAuthTimeout, "")
	t.Setenv(config.EnvCallbackURL, "")
	h := &harness{runner: &fakeRunner{}}

	_, err := execute(t, h, "--auth")
	require.NoError(t, err)
	assert.True(t, h.runner.authorized)
	assert.Empty(t, h.runner.prompts)
	assert.Equal(t, config.DefaultAuthTimeout, h.settings.AuthTimeout)
	assert.Equal(t, "https://q-signals-production.up.railway.app/oauth/callback", h.settings.CallbackURL)
}

func TestRoot_RunnerErrorPropagates(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "ak_test")
	authErr := errors.New("wait for connection: timed out")
	h := &harness{runner: &fakeRunner{err: authErr}}

	out, err := execute(t, h, "--auth")
	assert.ErrorIs(t, err, authErr)
	assert.Contains(t, out, "timed out")
	assert.NotContains(t, out, "Usage:")
	assert.Equal(t, 1, h.cleaned)
}

func TestRoot_RejectsPositionalArgs(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "ak_test")
	h := &harness{runner: &fakeRunner{}}

	_, err := execute(t, h, "extra")
	assert.Error(t, err)
	assert.Equal(t, 0, h.built)
}

package ctl

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/bkashgate/internal/common"
	"github.com/dmitrijs2005/bkashgate/internal/config"
	"github.com/dmitrijs2005/bkashgate/internal/export"
	"github.com/dmitrijs2005/bkashgate/internal/logging"
)

type fakeRuntime struct {
	token      string
	tokenErr   error
	refreshed  bool
	tenant     string
	result     *export.Result
	closed     bool
	cfg        *config.Config
	exportErr  error
	exportRuns int
}

func (f *fakeRuntime) GetToken(_ context.Context, tenant string) (string, error) {
	f.tenant = tenant
	return f.token, f.tokenErr
}

func (f *fakeRuntime) RefreshToken(_ context.Context, tenant string) (string, error) {
	f.refreshed = true
	f.tenant = tenant
	return f.token, f.tokenErr
}

func (f *fakeRuntime) Export(context.Context) (*export.Result, error) {
	f.exportRuns++
	return f.result, f.exportErr
}

func (f *fakeRuntime) Close() error {
	f.closed = true
	return nil
}

func withRuntime(t *testing.T, rt *fakeRuntime) {
	t.Helper()
	orig := openRuntime
	t.Cleanup(func() { openRuntime = orig })
	openRuntime = func(_ context.Context, cfg *config.Config, _ logging.Logger) (runtime, error) {
		rt.cfg = cfg
		return rt, nil
	}
}

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("BKASH_APP_KEY", "key")
	t.Setenv("BKASH_APP_SECRET", "secret")
	t.Setenv("BKASH_USERNAME", "user")
	t.Setenv("BKASH_PASSWORD", "pass")
}

func clearCredentials(t *testing.T) {
	t.Helper()
	for _, k := range []string{"BKASH_APP_KEY", "BKASH_APP_SECRET", "BKASH_USERNAME", "BKASH_PASSWORD"} {
		t.Setenv(k, "")
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSetup_MissingCredentials(t *testing.T) {
	clearCredentials(t)
	rt := &fakeRuntime{}
	withRuntime(t, rt)

	out, err := run(t, "", "setup")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingCredentials)
	assert.Contains(t, out, "BKASH_APP_KEY=your-app-key")
	assert.Nil(t, rt.cfg, "runtime must not be opened")
}

func TestSetup_WithoutTest(t *testing.T) {
	setCredentials(t)
	rt := &fakeRuntime{token: "unused"}
	withRuntime(t, rt)

	out, err := run(t, "", "setup", "--dsn", "postgres://db/ledger")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Ledger migrations applied")
	assert.Contains(t, out, "bKash integration is properly set up!")
	assert.Empty(t, rt.tenant)
	assert.True(t, rt.closed)
	assert.Equal(t, "postgres://db/ledger", rt.cfg.DatabaseDSN)
}

func TestSetup_TestPrintsTokenPrefix(t *testing.T) {
	setCredentials(t)
	rt := &fakeRuntime{token: "eyJhbGciOiJSUzI1NiJ9.payload.signature"}
	withRuntime(t, rt)

	out, err := run(t, "", "setup", "--test", "--sandbox=false")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Successfully connected to bKash API")
	assert.Contains(t, out, "Token: eyJhbGciOiJSUzI1NiJ9...")
	assert.NotContains(t, out, "signature")
	assert.False(t, rt.cfg.Sandbox)
}

func TestSetup_TestFailure(t *testing.T) {
	setCredentials(t)
	withRuntime(t, &fakeRuntime{tokenErr: errors.New("Invalid app token")})

	_, err := run(t, "", "setup", "--test")
	require.Error(t, err)
	assert.Equal(t, "failed to connect to bKash API: Invalid app token", err.Error())
}

func TestSetup_PromptsForMissing(t *testing.T) {
	clearCredentials(t)
	rt := &fakeRuntime{}
	withRuntime(t, rt)

	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	secrets := []string{"s3cret", "p4ss"}
	readPassword = func(int) ([]byte, error) {
		s := secrets[0]
		secrets = secrets[1:]
		return []byte(s), nil
	}

	out, err := run(t, "my-key\nmy-user\n", "setup", "--prompt")
	require.NoError(t, err)
	assert.Contains(t, out, "bKash app key")
	assert.Equal(t, "my-key", rt.cfg.AppKey)
	assert.Equal(t, "my-user", rt.cfg.Username)
	assert.Equal(t, "s3cret", rt.cfg.AppSecret)
	assert.Equal(t, "p4ss", rt.cfg.Password)
}

func TestToken(t *testing.T) {
	setCredentials(t)
	rt := &fakeRuntime{token: "short"}
	withRuntime(t, rt)

	out, err := run(t, "", "token", "--tenant", "shop-a")
	require.NoError(t, err)
	assert.Contains(t, out, "Token: *****")
	assert.Equal(t, "shop-a", rt.tenant)
	assert.False(t, rt.refreshed)

	_, err = run(t, "", "token", "--refresh")
	require.NoError(t, err)
	assert.True(t, rt.refreshed)
}

func TestExport(t *testing.T) {
	setCredentials(t)
	rt := &fakeRuntime{result: &export.Result{
		Prefix: "ledger/2024/06/01/x", Payments: 3, Refunds: 1,
		PaymentsURL: "https://s3/p", RefundsURL: "https://s3/r",
	}}
	withRuntime(t, rt)

	out, err := run(t, "", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 3 payments and 1 refunds to s3://bkash-ledger/ledger/2024/06/01/x")
	assert.Contains(t, out, "https://s3/p")
	assert.Equal(t, 1, rt.exportRuns)
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(bufio.NewReader(strings.NewReader("lastline")), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)
	assert.Equal(t, "Name?\n> ", out.String())
}

func TestGetSecret_Error(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }

	var out bytes.Buffer
	_, err := GetSecret(&out, "Password")
	assert.Error(t, err)
}

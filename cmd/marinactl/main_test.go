package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/marinagate/internal/application"
)

func testEnv(stdin string) (environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return environment{stdin: strings.NewReader(stdin), stdout: &stdout, stderr: &stderr}, &stdout, &stderr
}

func TestDispatchUsage(t *testing.T) {
	env, _, stderr := testEnv("")
	require.NoError(t, dispatch(context.Background(), env, nil))
	assert.Contains(t, stderr.String(), "autocheckout")
	assert.Contains(t, stderr.String(), "hash-password")

	env, _, _ = testEnv("")
	err := dispatch(context.Background(), env, []string{"frobnicate"})
	assert.ErrorContains(t, err, `unknown command "frobnicate"`)
}

func TestHashPassword(t *testing.T) {
	env, stdout, _ := testEnv("segredo-forte\n")
	require.NoError(t, dispatch(context.Background(), env, []string{"hash-password"}))

	hash := strings.TrimSpace(stdout.String())
	require.True(t, strings.HasPrefix(hash, "$argon2id$"), hash)
	assert.NoError(t, application.VerifyPassword(hash, "segredo-forte"))

	env, _, _ = testEnv("")
	assert.Error(t, dispatch(context.Background(), env, []string{"hash-password"}))
}

func setSQLiteEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	sitesFile := filepath.Join(dir, "sites.yaml")
	require.NoError(t, os.WriteFile(sitesFile, []byte("sites:\n  - id: norte\n    name: Marina Norte\n"), 0o600))

	t.Setenv("MARINA_BACKEND", "sqlite")
	t.Setenv("MARINA_SQLITE_DSN", filepath.Join(dir, "marinagate.db"))
	t.Setenv("MARINA_TOKEN_SECRET", "cli-secret")
	t.Setenv("MARINA_SITES_FILE", sitesFile)
	t.Setenv("MARINA_REDIS_URL", "")
	t.Setenv("MARINA_BOOTSTRAP_OWNER_EMAIL", "")
	return dir
}

func TestExportWritesCSVHeader(t *testing.T) {
	dir := setSQLiteEnv(t)
	out := filepath.Join(dir, "historico.csv")

	env, _, _ := testEnv("")
	require.NoError(t, dispatch(context.Background(), env, []string{"export", "--site", "norte", "--from", "2024-05-01", "-o", out}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, string(data), "Nome")
}

func TestExportValidatesFlags(t *testing.T) {
	env, _, _ := testEnv("")
	assert.ErrorContains(t, dispatch(context.Background(), env, []string{"export"}), "--site is required")
	assert.ErrorContains(t, dispatch(context.Background(), env, []string{"export", "--site", "norte", "--format", "pdf"}), "unsupported format")
	assert.ErrorContains(t, dispatch(context.Background(), env, []string{"export", "--site", "norte", "--from", "01/05/2024"}), "invalid date")
}

func TestAutoCheckoutWithEmptyLedger(t *testing.T) {
	setSQLiteEnv(t)

	env, stdout, _ := testEnv("")
	require.NoError(t, dispatch(context.Background(), env, []string{"autocheckout", "--hours", "6"}))
	assert.Contains(t, stdout.String(), "0 movimentações encerradas")
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uadcheck/internal/domain"
	dErrors "uadcheck/pkg/domain-errors"
	"uadcheck/pkg/testutil"
)

func writePayload(t *testing.T, v any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(testutil.MustMarshal(t, v)), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := rootCmd(&stdout, &stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestValidateCommand(t *testing.T) {
	t.Setenv("UAD_LOG_LEVEL", "error")

	t.Run("bare payload passes", func(t *testing.T) {
		out, _, err := execute(t, "", "validate", "--payload", writePayload(t, testutil.BasePayload()))
		require.NoError(t, err)

		result := testutil.UnmarshalResult(t, []byte(out))
		assert.Equal(t, domain.StatusPass, result.Status)
		assert.Equal(t, "1.1.0", result.RulesetVersion)
	})

	t.Run("extraction envelope is unwrapped", func(t *testing.T) {
		p := testutil.BasePayload()
		delete(p, "contract")
		envelope := map[string]any{
			"payload":    p,
			"source":     "extraction",
			"page_count": 31,
		}

		out, _, err := execute(t, "", "validate", "--payload", writePayload(t, envelope))
		require.NoError(t, err)

		result := testutil.UnmarshalResult(t, []byte(out))
		assert.Equal(t, domain.StatusFail, result.Status)
		schema := testutil.FindingsFor(result.Findings, domain.RuleSchema)
		require.NotEmpty(t, schema)
		assert.Equal(t, "$", schema[0].Field)
	})

	t.Run("payload from stdin", func(t *testing.T) {
		out, _, err := execute(t, testutil.MustMarshal(t, testutil.BasePayload()), "validate", "--payload", "-", "--quiet")
		require.NoError(t, err)
		assert.NotContains(t, strings.TrimSpace(out), "\n")
		assert.Equal(t, domain.StatusPass, testutil.UnmarshalResult(t, []byte(out)).Status)
	})

	t.Run("missing payload file is invalid input", func(t *testing.T) {
		_, _, err := execute(t, "", "validate", "--payload", filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("payload that is not an object is invalid input", func(t *testing.T) {
		_, _, err := execute(t, "[1, 2]", "validate", "--payload", "-")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rules directory without documents fails to load", func(t *testing.T) {
		_, _, err := execute(t, "", "validate",
			"--payload", writePayload(t, testutil.BasePayload()),
			"--rules-dir", t.TempDir(),
		)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfigNotFound))
	})

	t.Run("invalid log level flag is rejected", func(t *testing.T) {
		_, _, err := execute(t, "", "validate",
			"--payload", writePayload(t, testutil.BasePayload()),
			"--log-level", "verbose",
		)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfigInvalid))
	})

	t.Run("payload flag is required", func(t *testing.T) {
		_, _, err := execute(t, "", "validate")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "payload")
	})
}

func TestVersionCommand(t *testing.T) {
	t.Run("default ruleset version", func(t *testing.T) {
		out, _, err := execute(t, "", "version")
		require.NoError(t, err)
		assert.Equal(t, "uadcheck version dev (ruleset 1.1.0)\n", out)
	})

	t.Run("environment override matches validate", func(t *testing.T) {
		t.Setenv("UAD_RULESET_VERSION", "2.0.0")
		t.Setenv("UAD_LOG_LEVEL", "error")

		out, _, err := execute(t, "", "version")
		require.NoError(t, err)
		assert.Equal(t, "uadcheck version dev (ruleset 2.0.0)\n", out)

		out, _, err = execute(t, "", "validate", "--payload", writePayload(t, testutil.BasePayload()))
		require.NoError(t, err)
		assert.Equal(t, "2.0.0", testutil.UnmarshalResult(t, []byte(out)).RulesetVersion)
	})

	t.Run("config file version", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "uadcheck.yaml")
		require.NoError(t, os.WriteFile(path, []byte("ruleset_version: 3.1.4\n"), 0o600))

		out, _, err := execute(t, "", "version", "--config", path)
		require.NoError(t, err)
		assert.Equal(t, "uadcheck version dev (ruleset 3.1.4)\n", out)
	})
}

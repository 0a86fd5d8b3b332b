package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/invoicefetch/internal/google"
)

func TestWarnExistingToken(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token.json")
	provider := google.NewFileTokenProvider(filepath.Join(dir, "credentials.json"), tokenFile)

	var out bytes.Buffer
	assert.False(t, warnExistingToken(&out, provider))
	assert.Empty(t, out.String())

	require.NoError(t, os.WriteFile(tokenFile, []byte(`{"access_token":"old"}`), 0o600))

	assert.True(t, warnExistingToken(&out, provider))
	assert.Contains(t, out.String(), tokenFile)
	assert.Contains(t, out.String(), "will be replaced")
}

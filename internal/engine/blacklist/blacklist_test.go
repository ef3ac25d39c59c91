package blacklist

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/tokensleuth/internal/domain"
)

const sampleYAML = `
creators:
  - chain: SOLANA
    address: 4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T
    incidents: 3
  - chain: ETHEREUM
    address: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
  - chain: BSC
    address: "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984"
    incidents: 0
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blacklist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	bl, err := Load(writeTemp(t, sampleYAML))
	require.NoError(t, err)
	defer bl.Stop()

	assert.Equal(t, 3, bl.Size())
	assert.Equal(t, 3, bl.Incidents(domain.ChainSolana, "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"))
	assert.Equal(t, 0, bl.Incidents(domain.ChainSolana, "So11111111111111111111111111111111111111112"))

	// Zero or absent incident counts still mean at least one recorded incident
	assert.Equal(t, 1, bl.Incidents(domain.ChainBSC, "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984"))
}

func TestLoad_EVMAddressCaseInsensitive(t *testing.T) {
	bl, err := Load(writeTemp(t, sampleYAML))
	require.NoError(t, err)
	defer bl.Stop()

	// Listed checksummed, queried lowercase
	assert.Equal(t, 1, bl.Incidents(domain.ChainEthereum, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"))
}

func TestLoad_EmptySource(t *testing.T) {
	bl, err := Load("")
	require.NoError(t, err)
	defer bl.Stop()
	assert.Equal(t, 0, bl.Size())
	assert.Equal(t, 0, bl.Incidents(domain.ChainSolana, "anything"))
}

func TestLoad_HTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(sampleYAML))
	}))
	defer srv.Close()

	bl, err := Load(srv.URL)
	require.NoError(t, err)
	defer bl.Stop()
	assert.Equal(t, 3, bl.Size())
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeTemp(t, "creators: [not: valid: yaml"))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

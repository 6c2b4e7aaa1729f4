package main

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"eventstream/internal/ledgertest"
	"eventstream/internal/models"

	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTool(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(args, &out)
	return out.String(), err
}

func TestDecodeID(t *testing.T) {
	id, err := models.NewEventID(models.EventPosition{Ledger: 10, Tx: 1, Op: 2, Event: 3})
	require.NoError(t, err)

	out, err := runTool(t, "id", id)
	require.NoError(t, err)
	assert.Equal(t, "ledger: 10\ntx: 1\nop: 2\nevent: 3\n", out)

	_, err = runTool(t, "id", "garbage")
	assert.Error(t, err)
}

func TestConvertContract(t *testing.T) {
	address := ledgertest.ContractAddress(7)
	raw := ledgertest.ContractBytes(7)

	out, err := runTool(t, "contract", address)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(raw[:])+"\n", out)

	out, err = runTool(t, "contract", hex.EncodeToString(raw[:]))
	require.NoError(t, err)
	assert.Equal(t, address+"\n", out)

	_, err = runTool(t, "contract", "abcd")
	assert.Error(t, err)
}

func TestPrintScVal(t *testing.T) {
	encoded, err := xdr.MarshalBase64(ledgertest.Symbol("mint"))
	require.NoError(t, err)

	out, err := runTool(t, "scval", encoded)
	require.NoError(t, err)
	assert.Contains(t, out, ": mint")
}

func TestCheckFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filters.yaml")
	body := "filters:\n  - type: contract\n    topics:\n      - [\"symbol:mint\", \"**\"]\n  - {}\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	out, err := runTool(t, "filters", path)
	require.NoError(t, err)
	assert.Contains(t, out, "filter 0: type=contract contracts=0")
	assert.Contains(t, out, "filter 1: type=any")
	assert.Contains(t, out, "2 filters ok")
}

func TestRunUsage(t *testing.T) {
	_, err := runTool(t)
	assert.ErrorIs(t, err, errUsage)

	_, err = runTool(t, "replay", "x")
	assert.ErrorIs(t, err, errUsage)
}

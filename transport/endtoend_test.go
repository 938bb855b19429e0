package transport_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/latticenode/block"
	"github.com/tolelom/latticenode/crypto"
	"github.com/tolelom/latticenode/store/storetest"
	"github.com/tolelom/latticenode/transport"
)

// TestServerAndDialer_GenesisBootstrap exercises scenario 1 end to end at
// the transport layer: peer A serves its one genesis block, B dials A and
// pulls it.
func TestServerAndDialer_GenesisBootstrap(t *testing.T) {
	a := storetest.NewStore()
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	acct := crypto.AccountOf(pub)
	genesisHash := seedGenesisOnly(t, a, priv, acct)

	srv := transport.NewServer(a, nil)
	require.NoError(t, srv.Listen("127.0.0.1:0"))
	defer srv.Close()

	d := transport.NewTCPDialer([]string{srv.Addr().String()}, nil)
	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Request(block.BulkPullRequest{Start: block.Hash(acct), Count: 16}))

	got, err := conn.ReadBlock()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, genesisHash, got.ContentHash())

	end, err := conn.ReadBlock()
	require.NoError(t, err)
	assert.Nil(t, end, "exactly one block then not_a_block")
}

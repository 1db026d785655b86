package instruction

import (
	"testing"

	"pump_buy/internal/common"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreateIdempotentATA(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	mint := solana.MustPublicKeyFromBase58("32bKPLHRThqX7r67AvEJD1wccTmeKaWcMwofTDkBpump")

	ix, err := NewCreateIdempotentATA(owner, owner, mint)
	require.NoError(t, err)
	assert.Equal(t, common.AssociatedTokenProgramID, ix.ProgramID())

	// CreateIdempotent 而非 Create，重复创建不会失败
	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)

	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)

	metas := ix.Accounts()
	require.Len(t, metas, 6)
	assert.Equal(t, owner, metas[0].PublicKey)
	assert.True(t, metas[0].IsSigner)
	assert.True(t, metas[0].IsWritable)
	assert.Equal(t, ata, metas[1].PublicKey)
	assert.True(t, metas[1].IsWritable)
	assert.Equal(t, owner, metas[2].PublicKey)
	assert.Equal(t, mint, metas[3].PublicKey)
	assert.Equal(t, common.SystemProgramID, metas[4].PublicKey)
	assert.Equal(t, common.TokenProgramID, metas[5].PublicKey)
}

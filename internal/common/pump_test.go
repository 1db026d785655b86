package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscriminator(t *testing.T) {
	tests := []struct {
		name   string
		action TradeAction
		want   [8]byte
		ok     bool
	}{
		{name: "买入", action: BUY, want: [8]byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}, ok: true},
		{name: "卖出", action: SELL, want: [8]byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}, ok: true},
		{name: "未知类型", action: TradeAction("swap"), ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Discriminator(tt.action)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			if ok {
				back, found := ActionFromDiscriminator(got)
				require.True(t, found)
				assert.Equal(t, tt.action, back)
			}
		})
	}
}

func TestDiscriminatorsDistinct(t *testing.T) {
	assert.NotEqual(t, BuyDiscriminator, SellDiscriminator)
	_, ok := ActionFromDiscriminator([8]byte{})
	assert.False(t, ok)
}

func TestProgramAddresses(t *testing.T) {
	assert.Equal(t, "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P", PumpProgramID.String())
	assert.Equal(t, "4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf", PumpGlobal.String())
	assert.Equal(t, "CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM", PumpFeeRecipient.String())
	assert.Equal(t, "Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1", PumpEventAuthority.String())
	assert.Equal(t, "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", TokenProgramID.String())
	assert.Equal(t, "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL", AssociatedTokenProgramID.String())
	assert.Equal(t, "11111111111111111111111111111111", SystemProgramID.String())
	assert.Equal(t, "SysvarRent111111111111111111111111111111111", RentSysvarID.String())
}

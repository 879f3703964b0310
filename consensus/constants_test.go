package consensus

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstantsFromYAML(t *testing.T) {
	preset := []byte(`
agg_sig_additional_data: "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
max_block_cost: 5000000
condition_cost: 7
`)
	c, err := ConstantsFromYAML(preset)
	require.NoError(t, err)
	require.Equal(t, "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
		hex.EncodeToString(c.AggSigAdditionalData[:]))
	require.Equal(t, uint64(5_000_000), c.MaxBlockCost)
	require.Equal(t, uint64(7), c.ConditionCost)

	// untouched keys keep the mainnet defaults
	def := MainnetConstants()
	require.Equal(t, def.CreateCoinCost, c.CreateCoinCost)
	require.Equal(t, def.CostPerByte, c.CostPerByte)
}

func TestConstantsFromYAMLErrors(t *testing.T) {
	_, err := ConstantsFromYAML([]byte(`agg_sig_additional_data: "zz"`))
	require.Error(t, err)

	_, err = ConstantsFromYAML([]byte("max_block_cost: [1,2]"))
	require.Error(t, err)
}

func TestNetworkPresetsDiffer(t *testing.T) {
	require.NotEqual(t, MainnetConstants().AggSigAdditionalData, TestnetConstants().AggSigAdditionalData)
}

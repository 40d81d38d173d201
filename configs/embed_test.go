package configs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedConfigsAreValidJSON(t *testing.T) {
	for _, name := range []string{"node", "local"} {
		data := Get(name)
		require.NotEmpty(t, data, name)

		var v map[string]interface{}
		assert.NoError(t, json.Unmarshal(data, &v), name)
		assert.Contains(t, v, "handshake", name)
	}
	assert.Nil(t, Get("mainnet"))
}

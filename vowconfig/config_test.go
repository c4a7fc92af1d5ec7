package vowconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAML(t *testing.T) {
	doc := []byte(`
service: rate_limiter
proto: "0.1.0"
url: ws://localhost:9090/rpc
headers:
  authorization: Bearer 123
connect_timeout: 5s
default_buffer_size: 8
bidirectional_stream_ids: false
metrics: true
`)
	cfg, err := LoadYAML(doc)
	require.NoError(t, err)
	assert.Equal(t, "rate_limiter", cfg.Service)
	assert.Equal(t, "0.1.0", cfg.Proto)
	require.NotNil(t, cfg.Option.ConnectTimeout)
	assert.Equal(t, 5*time.Second, *cfg.Option.ConnectTimeout)
	assert.Equal(t, 8, *cfg.Option.DefaultBufferSize)
}

func TestLoadJSONMissingServiceFails(t *testing.T) {
	_, err := LoadJSON([]byte(`{"proto":"0.1.0"}`))
	assert.Error(t, err)
}

func TestOptionMergeDefaults(t *testing.T) {
	var o *Option
	resolved := o.Resolved()
	assert.Equal(t, 10*time.Second, *resolved.ConnectTimeout)
	assert.Equal(t, 16, *resolved.DefaultBufferSize)

	override := &Option{DefaultBufferSize: intP(32)}
	merged := resolved.Merge(override)
	assert.Equal(t, 32, *merged.DefaultBufferSize)
	assert.Equal(t, 10*time.Second, *merged.ConnectTimeout)
}

package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecs(t *testing.T) {
	data := bytes.Repeat([]byte("1,2.5,-1,0.125\n"), 200)
	for _, name := range CodecNames() {
		t.Run(name, func(t *testing.T) {
			c, err := ParseCodec(name)
			require.NoError(t, err)
			assert.Equal(t, name, c.Name())

			packed, err := c.Compress(data)
			require.NoError(t, err)
			if name != "none" {
				assert.Less(t, len(packed), len(data))
			}
			out, err := c.Decompress(packed)
			require.NoError(t, err)
			assert.Equal(t, data, out)
		})
	}
}

func TestParseCodec(t *testing.T) {
	c, err := ParseCodec("")
	require.NoError(t, err)
	assert.Equal(t, "none", c.Name())

	_, err = ParseCodec("brotli")
	assert.ErrorIs(t, err, ErrUnknownCodec)
}

func TestCodecs_RejectGarbage(t *testing.T) {
	for _, name := range []string{"gzip", "zstd", "lz4"} {
		c, err := ParseCodec(name)
		require.NoError(t, err)
		_, err = c.Decompress([]byte("definitely not compressed"))
		assert.Error(t, err, name)
	}
}

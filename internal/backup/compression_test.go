package backup

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressionRoundTrip(t *testing.T) {
	manager := NewCompressionManager()
	payload := bytes.Repeat([]byte("game world chunk data "), 512)

	algorithms := []CompressionType{
		CompressionTypeGzip,
		CompressionTypeZstd,
		CompressionTypeLZ4,
		CompressionTypeNone,
	}

	for _, algorithm := range algorithms {
		t.Run(string(algorithm), func(t *testing.T) {
			var compressed bytes.Buffer

			writer, err := manager.NewWriter(&compressed, algorithm)
			require.NoError(t, err)
			_, err = writer.Write(payload)
			require.NoError(t, err)
			require.NoError(t, writer.Close())

			if algorithm != CompressionTypeNone {
				assert.Less(t, compressed.Len(), len(payload))
			}

			reader, err := manager.NewReader(bytes.NewReader(compressed.Bytes()), algorithm)
			require.NoError(t, err)
			defer reader.Close()

			restored, err := io.ReadAll(reader)
			require.NoError(t, err)
			assert.Equal(t, payload, restored)
		})
	}
}

func TestCompressionExtension(t *testing.T) {
	manager := NewCompressionManager()

	assert.Equal(t, ".tar.gz", manager.Extension(CompressionTypeGzip))
	assert.Equal(t, ".tar.zst", manager.Extension(CompressionTypeZstd))
	assert.Equal(t, ".tar.lz4", manager.Extension(CompressionTypeLZ4))
	assert.Equal(t, ".tar", manager.Extension(CompressionTypeNone))
}

func TestCompressionUnsupportedAlgorithm(t *testing.T) {
	manager := NewCompressionManager()

	_, err := manager.NewWriter(&bytes.Buffer{}, "BROTLI")
	assert.Error(t, err)

	_, err = manager.NewReader(bytes.NewReader(nil), "BROTLI")
	assert.Error(t, err)
}

func TestCompressionSupportedAlgorithms(t *testing.T) {
	manager := NewCompressionManager()
	algorithms := manager.GetSupportedAlgorithms()

	assert.Len(t, algorithms, 3)
	assert.Contains(t, algorithms, CompressionTypeGzip)
	assert.Contains(t, algorithms, CompressionTypeZstd)
	assert.Contains(t, algorithms, CompressionTypeLZ4)
}

package s3_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carlot/adapters/s3"
)

func TestMaxSizeReader(t *testing.T) {
	tests := []struct {
		name       string
		input      []byte
		maxSize    int64
		wantN      int
		wantErr    bool
		wantErrMsg string
	}{
		{
			name:    "讀取小於限制的內容",
			input:   []byte("hello"),
			maxSize: 10,
			wantN:   5,
		},
		{
			name:    "讀取剛好等於限制的內容",
			input:   []byte("hello"),
			maxSize: 5,
			wantN:   5,
		},
		{
			name:       "讀取超過限制的內容",
			input:      []byte("hello world"),
			maxSize:    5,
			wantN:      5,
			wantErr:    true,
			wantErrMsg: "reach limit of 5 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := s3.NewMaxSizeReader(bytes.NewReader(tt.input), tt.maxSize)
			buf := make([]byte, len(tt.input))
			n, err := reader.Read(buf)

			assert.Equal(t, tt.wantN, n)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantErrMsg, err.Error())
			} else {
				assert.True(t, err == nil || err == io.EOF)
			}
		})
	}
}

func TestReadAllLimited(t *testing.T) {
	t.Run("under limit", func(t *testing.T) {
		content, err := s3.ReadAllLimited(bytes.NewReader([]byte("image")), 16)
		require.NoError(t, err)
		assert.Equal(t, []byte("image"), content)
	})

	t.Run("over limit", func(t *testing.T) {
		payload := bytes.Repeat([]byte{0xff}, int(s3.MaxImageSize)+1)
		content, err := s3.ReadAllLimited(bytes.NewReader(payload), s3.MaxImageSize)
		assert.Nil(t, content)
		var limitErr *s3.ReachLimitError
		require.ErrorAs(t, err, &limitErr)
		assert.Equal(t, s3.MaxImageSize, limitErr.MaxBytes)
		assert.Equal(t, "reach limit of 8.00 MB", err.Error())
	})
}

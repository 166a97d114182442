package material

import (
	"testing"
	"time"

	"github.com/lecturedesk/lecturedesk/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	file := &File{Name: "slides.pdf", Data: []byte("%PDF-1.7")}
	tests := []struct {
		name    string
		req     UploadRequest
		max     int64
		wantErr error
	}{
		{"valid", UploadRequest{Title: "Week 1", File: file}, 1024, nil},
		{"blank title", UploadRequest{Title: "   ", File: file}, 1024, ErrTitleRequired},
		{"no file", UploadRequest{Title: "Week 1"}, 1024, ErrFileRequired},
		{"unnamed file", UploadRequest{Title: "Week 1", File: &File{Data: []byte("x")}}, 1024, ErrFileRequired},
		{"too large", UploadRequest{Title: "Week 1", File: file}, 4, ErrFileTooLarge},
		{"no limit", UploadRequest{Title: "Week 1", File: file}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req, tt.max)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPendingUploads(t *testing.T) {
	clock := utils.NewMockClock(time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC))
	req := UploadRequest{Title: "Week 1", File: &File{Name: "slides.pdf", Data: []byte("%PDF")}}

	t.Run("returns the stored form to the same scope only", func(t *testing.T) {
		pending := NewPendingUploads(time.Minute, clock)
		token := pending.Put("u-1", req)

		got, ok := pending.Get("u-1", token)
		require.True(t, ok)
		assert.Equal(t, req, got)

		_, ok = pending.Get("u-2", token)
		assert.False(t, ok)
	})

	t.Run("expires after the ttl", func(t *testing.T) {
		pending := NewPendingUploads(time.Minute, clock)
		token := pending.Put("u-1", req)
		pending.Put("u-1", req)
		clock.Advance(time.Minute)

		_, ok := pending.Get("u-1", token)

		assert.False(t, ok)
		assert.Equal(t, 1, pending.Sweep())
		assert.Equal(t, 0, pending.Len())
	})

	t.Run("delete forgets the token", func(t *testing.T) {
		pending := NewPendingUploads(0, clock)
		token := pending.Put("u-1", req)

		pending.Delete(token)

		_, ok := pending.Get("u-1", token)
		assert.False(t, ok)
	})
}

package object

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestCopyChunked(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		size      int
		max       int64
		wantErr   error
		wantBytes int64
	}{
		{name: "small", size: 10, max: 100, wantBytes: 10},
		{name: "exact multi chunk", size: 2 * ChunkSize, max: 2 * ChunkSize, wantBytes: 2 * ChunkSize},
		{name: "unlimited", size: ChunkSize + 5, max: 0, wantBytes: ChunkSize + 5},
		{name: "over by one", size: ChunkSize + 1, max: ChunkSize, wantErr: ErrTooLarge, wantBytes: ChunkSize},
		{name: "first chunk too big", size: 50, max: 10, wantErr: ErrTooLarge, wantBytes: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var dst bytes.Buffer
			n, err := CopyChunked(context.Background(), &dst, bytes.NewReader(make([]byte, tt.size)), tt.max)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if n != tt.wantBytes || int64(dst.Len()) != tt.wantBytes {
				t.Fatalf("copied %d (buffer %d), want %d", n, dst.Len(), tt.wantBytes)
			}
		})
	}
}

func TestCleanKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "7/abc.pdf", want: "7/abc.pdf"},
		{key: "/7//abc.pdf", want: "7/abc.pdf"},
		{key: "../etc/passwd", wantErr: true},
		{key: "7/../../x", wantErr: true},
		{key: `7\abc.pdf`, wantErr: true},
		{key: "  ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := CleanKey(tt.key)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("CleanKey(%q) expected ErrInvalidKey, got %q, %v", tt.key, got, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("CleanKey(%q) = %q, %v; want %q", tt.key, got, err, tt.want)
		}
	}
}

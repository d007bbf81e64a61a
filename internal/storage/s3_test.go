package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
	gifHeader  = []byte("GIF89a\x01\x00\x01\x00")
)

func TestValidateImage(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantCT  string
		wantExt string
		wantErr error
	}{
		{"png", pngHeader, "image/png", ".png", nil},
		{"jpeg", jpegHeader, "image/jpeg", ".jpg", nil},
		{"gif", gifHeader, "image/gif", ".gif", nil},
		{"empty", nil, "", "", ErrEmptyFile},
		{"text", []byte("hello world"), "", "", ErrUnsupportedType},
		{"too large", append(append([]byte{}, pngHeader...), make([]byte, MaxImageBytes)...), "", "", ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, ext, err := ValidateImage(tt.data)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCT, ct)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey(KindAvatar, "user-1", ".png", time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC))
	assert.True(t, strings.HasPrefix(key, "avatars/2025/03/user-1/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func newTestUploader(t *testing.T) (*S3Uploader, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := s3.NewFromConfig(aws.Config{
		Region:      "us-east-1",
		Credentials: aws.AnonymousCredentials{},
	}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(srv.URL)
		o.UsePathStyle = true
	})
	return NewS3UploaderWithClient(client, "us-east-1", "media", "https://cdn.example.com/"), fake
}

func TestUploadImage(t *testing.T) {
	u, fake := newTestUploader(t)
	ctx := context.Background()

	res, err := u.UploadImage(ctx, pngHeader, "user-1", "../cat.png", KindPost)
	require.NoError(t, err)
	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, "https://cdn.example.com/"+res.Key, res.URL)
	assert.True(t, strings.HasPrefix(res.Key, "posts/"))

	stored, ok := fake.objects["/media/"+res.Key]
	require.True(t, ok)
	assert.True(t, bytes.Contains(stored, []byte("PNG")))

	key, ok := u.KeyFromURL(res.URL)
	require.True(t, ok)
	assert.Equal(t, res.Key, key)

	require.NoError(t, u.DeleteFile(ctx, key))
	_, ok = fake.objects["/media/"+res.Key]
	assert.False(t, ok)

	_, err = u.UploadImage(ctx, []byte("plain"), "user-1", "x.txt", KindPost)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDefaultBaseURL(t *testing.T) {
	u := NewS3UploaderWithClient(nil, "eu-west-1", "media", "")
	_, ok := u.KeyFromURL("https://media.s3.eu-west-1.amazonaws.com/posts/a.png")
	assert.True(t, ok)
	_, ok = u.KeyFromURL("https://elsewhere.com/a.png")
	assert.False(t, ok)
}

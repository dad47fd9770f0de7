package imageproxy_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/BerryBytes/portalctl/internal/imageproxy"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	bucket  string
	key     string
	expires time.Duration
	err     error
}

func (f *fakePresigner) PresignGetObject(_ context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	f.bucket = aws.ToString(params.Bucket)
	f.key = aws.ToString(params.Key)
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{
		URL:    "https://signed.example/" + f.bucket + "/" + f.key + "?sig=abc",
		Method: http.MethodGet,
	}, nil
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		bucket string
		want   string
	}{
		{"FullURL", "https://host/bucket/sf-forums/photo.jpg", "sf-forums", "photo.jpg"},
		{"PlainKey", "photo.jpg", "sf-forums", "photo.jpg"},
		{"NestedKey", "avatars/2026/photo.jpg", "sf-forums", "avatars/2026/photo.jpg"},
		{"BucketPrefix", "/sf-forums/avatars/photo.jpg", "sf-forums", "avatars/photo.jpg"},
		{"VirtualHosted", "https://sf-forums.s3.eu-west-1.amazonaws.com/avatars/photo.jpg", "sf-forums", "avatars/photo.jpg"},
		{"QueryDropped", "https://host/sf-forums/photo.jpg?X-Amz-Expires=60", "sf-forums", "photo.jpg"},
		{"RawQueryDropped", "photo.jpg?v=2", "sf-forums", "photo.jpg"},
		{"EscapedURL", "https://host/sf-forums/my%20photo.jpg", "sf-forums", "my photo.jpg"},
		{"DuplicateSlashes", "//sf-forums//photo.jpg", "sf-forums", "photo.jpg"},
		{"NoBucket", "https://host/images/photo.jpg", "", "images/photo.jpg"},
		{"Empty", "   ", "sf-forums", ""},
		{"OnlyBucket", "https://host/sf-forums/", "sf-forums", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, imageproxy.NormalizeKey(tt.raw, tt.bucket))
		})
	}
}

func TestServer_ServeImage(t *testing.T) {
	signer := &fakePresigner{}
	srv := imageproxy.NewServer("sf-forums", signer, imageproxy.WithExpiry(5*time.Minute), imageproxy.WithLogger(zerolog.Nop()))
	router := srv.Router()

	t.Run("SignedURL", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/s3-image?key="+url.QueryEscape("https://host/bucket/sf-forums/photo.jpg"), nil)
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "https://signed.example/sf-forums/photo.jpg?sig=abc", body["url"])
		assert.Equal(t, "sf-forums", signer.bucket)
		assert.Equal(t, "photo.jpg", signer.key)
		assert.Equal(t, 5*time.Minute, signer.expires)
	})

	t.Run("Redirect", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/s3-image?key=photo.jpg&redirect=1", nil))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://signed.example/sf-forums/photo.jpg?sig=abc", rec.Header().Get("Location"))
	})

	t.Run("MissingKey", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/s3-image", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "missing key")
	})

	t.Run("Health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestServer_Failures(t *testing.T) {
	tests := []struct {
		name   string
		bucket string
		signer imageproxy.Presigner
	}{
		{name: "NoSigner", bucket: "sf-forums"},
		{name: "NoBucket", signer: &fakePresigner{}},
		{name: "SignError", bucket: "sf-forums", signer: &fakePresigner{
			err: &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := imageproxy.NewServer(tt.bucket, tt.signer)
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/s3-image?key=photo.jpg", nil))

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.NotContains(t, rec.Body.String(), "AccessDenied")
		})
	}

	_, err := imageproxy.NewServer("", nil).Sign(context.Background(), "photo.jpg")
	assert.True(t, errors.Is(err, imageproxy.ErrNotConfigured))
}

func TestNewS3Presigner(t *testing.T) {
	presigner, err := imageproxy.NewS3Presigner(context.Background(), imageproxy.StorageSettings{
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	}, nil)
	require.NoError(t, err)

	srv := imageproxy.NewServer("sf-forums", presigner, imageproxy.WithExpiry(time.Minute))
	signed, err := srv.Sign(context.Background(), "avatars/photo.jpg")
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/sf-forums/avatars/photo.jpg", u.Path)
	assert.Equal(t, "60", u.Query().Get("X-Amz-Expires"))
	assert.True(t, strings.HasPrefix(u.Query().Get("X-Amz-Credential"), "AKIDEXAMPLE/"))
}

type failingLoader struct{}

func (failingLoader) LoadDefaultConfig(context.Context, ...func(*config.LoadOptions) error) (aws.Config, error) {
	return aws.Config{}, errors.New("no config")
}

func TestNewS3Presigner_LoadError(t *testing.T) {
	_, err := imageproxy.NewS3Presigner(context.Background(), imageproxy.StorageSettings{}, failingLoader{})
	assert.ErrorContains(t, err, "failed to load AWS config")
}

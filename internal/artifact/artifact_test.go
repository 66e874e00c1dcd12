package artifact

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/cryguy/renderworker/internal/core"
)

func TestKey(t *testing.T) {
	tests := []struct {
		session string
		id      int64
		format  core.Format
		want    string
	}{
		{"abc", 7, core.FormatPNG, "renders/abc/7.png"},
		{"/abc/", 8, core.FormatJPEG, "renders/abc/8.jpg"},
		{"  ", 1, core.FormatWebP, "renders/default/1.webp"},
	}
	for _, tt := range tests {
		if got := Key(tt.session, tt.id, tt.format); got != tt.want {
			t.Errorf("Key(%q, %d, %s) = %q, want %q", tt.session, tt.id, tt.format, got, tt.want)
		}
	}
}

func TestDataURIStore(t *testing.T) {
	uri, err := DataURIStore{}.Put(context.Background(), "ignored", core.FormatJPEG, []byte("hello"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if uri != "data:image/jpeg;base64,aGVsbG8=" {
		t.Errorf("uri = %q", uri)
	}
	data, err := DecodeDataURI(uri)
	if err != nil || string(data) != "hello" {
		t.Errorf("DecodeDataURI = %q, %v", data, err)
	}
}

func TestDecodeDataURI_Rejects(t *testing.T) {
	for _, uri := range []string{"https://example.com/a.png", "data:image/png,raw"} {
		if _, err := DecodeDataURI(uri); err == nil {
			t.Errorf("DecodeDataURI(%q) succeeded", uri)
		}
	}
}

func TestNewS3Store_Validation(t *testing.T) {
	tests := []struct {
		cfg  S3Config
		want string
	}{
		{S3Config{}, "endpoint"},
		{S3Config{Endpoint: "localhost:9000", Bucket: "b"}, "access key"},
		{S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, "bucket"},
	}
	for _, tt := range tests {
		_, err := NewS3Store(tt.cfg)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("NewS3Store(%+v) = %v, want an error about %s", tt.cfg, err, tt.want)
		}
	}
}

func TestS3Store_Presign(t *testing.T) {
	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "renders"})
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	if s.region != "us-east-1" {
		t.Errorf("region = %q", s.region)
	}

	raw, err := s.presign(context.Background(), Key("sess", 3, core.FormatPNG))
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	if u.Scheme != "http" || !strings.Contains(u.Path, "renders/sess/3.png") {
		t.Errorf("presigned url = %s", raw)
	}
	if got := u.Query().Get("X-Amz-Expires"); got != "3600" {
		t.Errorf("X-Amz-Expires = %q, want 3600", got)
	}
}

func TestFromConfig(t *testing.T) {
	st, err := FromConfig(S3Config{})
	if _, ok := st.(DataURIStore); err != nil || !ok {
		t.Errorf("FromConfig(empty) = %T, %v; want DataURIStore", st, err)
	}

	st, err = FromConfig(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "b"})
	if _, ok := st.(*S3Store); err != nil || !ok {
		t.Errorf("FromConfig(s3) = %T, %v; want *S3Store", st, err)
	}

	if _, err := FromConfig(S3Config{Endpoint: "localhost:9000", Bucket: "b"}); err == nil {
		t.Error("FromConfig without credentials succeeded")
	}
}

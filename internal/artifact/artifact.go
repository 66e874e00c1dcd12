// Package artifact publishes encoded render output and hands back a URI the
// consumer can load.
package artifact

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/cryguy/renderworker/internal/core"
)

// Key returns the object key for one render of a session:
// renders/<session>/<id>.<ext>.
func Key(session string, id int64, format core.Format) string {
	session = strings.Trim(strings.TrimSpace(session), "/")
	if session == "" {
		session = "default"
	}
	return fmt.Sprintf("renders/%s/%d.%s", session, id, format.Ext())
}

// DataURIStore inlines the artifact as a base64 data URI. It keeps nothing.
type DataURIStore struct{}

var _ core.ArtifactStore = DataURIStore{}

// Put ignores key and returns data:<mime>;base64,<payload>.
func (DataURIStore) Put(_ context.Context, _ string, format core.Format, data []byte) (string, error) {
	return DataURI(format, data), nil
}

// DataURI encodes data as a data URI for format.
func DataURI(format core.Format, data []byte) string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(format.MIMEType()) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(format.MIMEType())
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// DecodeDataURI reverses DataURI. It only accepts base64 payloads.
func DecodeDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("not a base64 data URI")
	}
	return base64.StdEncoding.DecodeString(payload)
}

package mcpconfig

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
)

// ReadDocument fetches document text from location, which is either a local
// path or any URL afs understands (file://, mem://, http(s)://, gs://, s3://).
func ReadDocument(ctx context.Context, location string) ([]byte, error) {
	if strings.TrimSpace(location) == "" {
		return nil, fmt.Errorf("config document location is empty")
	}
	URL := location
	if !strings.Contains(location, "://") {
		abs, err := filepath.Abs(location)
		if err != nil {
			return nil, fmt.Errorf("resolving config path %q: %w", location, err)
		}
		URL = "file://" + filepath.ToSlash(abs)
	}

	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("reading config document %q: %w", location, err)
	}
	return data, nil
}

// LoadFrom reads the document at location and loads it. Read failures are
// returned as plain errors, not as *LoadError.
func (l *Loader) LoadFrom(ctx context.Context, location string, env Environment) (*Set, error) {
	data, err := ReadDocument(ctx, location)
	if err != nil {
		return nil, err
	}
	return l.Load(data, env)
}

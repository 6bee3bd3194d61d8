package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/cloo-solutions/docpipe/internal/domain"
)

// Fetcher resolves a source reference to a local file path. The cleanup
// callback removes any temporary copy and is always safe to call.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (path string, cleanup func(), err error)
}

// LocalFetcher serves sources that are already paths on the local
// filesystem, with or without a file:// prefix.
type LocalFetcher struct{}

func (LocalFetcher) Fetch(ctx context.Context, source string) (string, func(), error) {
	path := strings.TrimPrefix(source, "file://")
	if _, err := os.Stat(path); err != nil {
		return "", func() {}, domain.NewDomainErrorWithCause(domain.ErrCodeExtraction, "source not readable: "+source, err)
	}
	return path, func() {}, nil
}

// SourceRouter dispatches fetches by URI scheme. Sources with an s3://
// prefix go to the remote fetcher; everything else is treated as local.
type SourceRouter struct {
	Local  Fetcher
	Remote Fetcher
}

func NewSourceRouter(remote Fetcher) *SourceRouter {
	return &SourceRouter{Local: LocalFetcher{}, Remote: remote}
}

func (r *SourceRouter) Fetch(ctx context.Context, source string) (string, func(), error) {
	if strings.HasPrefix(source, "s3://") {
		if r.Remote == nil {
			return "", func() {}, domain.NewDomainError(domain.ErrCodeValidation, "s3 source given but no object storage configured")
		}
		return r.Remote.Fetch(ctx, source)
	}
	return r.Local.Fetch(ctx, source)
}

// fingerprintFile hashes the file content so re-ingesting the same bytes
// always yields the same document id.
func fingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)[:16]), nil
}

// fingerprintSource hashes the source reference itself. Used as a stand-in
// document id when the content is unreachable, so failed documents still
// get distinct rows in the run ledger.
func fingerprintSource(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:16])
}

// Package archive provides the remote blob archive used as the sync
// transport. The archive stores uninterpreted JSON blobs keyed by name
// within a private per-user namespace.
//
// Name scheme: the modules collection travels as one fixed blob,
// modules_v1.json; each report has its own blob named report_<id>.json,
// discoverable by listing the report_ prefix.
//
// Backends: a Google Cloud Storage bucket for real remote sync, a local
// directory for folders mirrored by an external sync client, and an
// in-memory archive for tests.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotExist is returned by Get when no blob has the requested name.
var ErrNotExist = errors.New("blob does not exist")

const (
	// ModulesBlobName is the fixed name of the modules collection blob.
	ModulesBlobName = "modules_v1.json"

	// ReportBlobPrefix prefixes every report blob name.
	ReportBlobPrefix = "report_"

	reportBlobSuffix = ".json"
)

// Archive is the blob storage contract consumed by the sync engine.
//
// Put is create-or-update: writing a name that already exists replaces
// its content. Get returns ErrNotExist for absent names. List returns
// the names (not contents) of all blobs with the given prefix.
type Archive interface {
	// Ping verifies the archive is reachable and the caller is
	// authorized. Used as the connection handshake.
	Ping(ctx context.Context) error

	// Get returns the content of the named blob.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put creates or replaces the named blob.
	Put(ctx context.Context, name string, data []byte) error

	// List returns the names of all blobs starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ReportBlobName derives the stable blob name for a report id.
func ReportBlobName(id string) string {
	return ReportBlobPrefix + id + reportBlobSuffix
}

// ReportIDFromBlobName extracts the report id from a blob name.
func ReportIDFromBlobName(name string) (string, error) {
	if !strings.HasPrefix(name, ReportBlobPrefix) || !strings.HasSuffix(name, reportBlobSuffix) {
		return "", fmt.Errorf("not a report blob name: %s", name)
	}
	id := strings.TrimSuffix(strings.TrimPrefix(name, ReportBlobPrefix), reportBlobSuffix)
	if id == "" {
		return "", fmt.Errorf("empty report id in blob name: %s", name)
	}
	return id, nil
}

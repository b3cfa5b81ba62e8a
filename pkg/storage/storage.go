// Package storage provides the artifact store collaborator used to upload
// finished recordings.
package storage

import "context"

// ArtifactStore persists converted recordings in a remote object store.
//
// Store is not guaranteed idempotent; callers retrying an upload should
// mint a fresh key per attempt.
type ArtifactStore interface {
	// Store uploads the file at localPath under key.
	Store(ctx context.Context, localPath, key string) error

	// FetchURL returns a retrieval URL for a previously stored artifact.
	FetchURL(ctx context.Context, key string) (string, error)
}

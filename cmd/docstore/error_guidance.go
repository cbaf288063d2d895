package main

import (
	"context"
	"errors"

	"docstore/internal/ingest"
	"docstore/internal/store"
	"docstore/internal/tiered"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	switch {
	case errors.Is(err, ingest.ErrNotFound):
		lines = append(lines, "hint: check that the path to add exists.")
	case errors.Is(err, store.ErrNotFound):
		lines = append(lines, "hint: keys have the form <prefix>/<relative path>; the manifest printed by 'docstore add' lists them.")
	case errors.Is(err, tiered.ErrNoObjectStore):
		lines = append(lines,
			"hint: object storage is enabled by AWS_ACCESS_KEY_ID; the bucket comes from object_store.bucket or DOCSTORE_S3_BUCKET.",
			"hint: for a local directory backend set object_store.local_dir.",
		)
	case errors.Is(err, tiered.ErrStorageFatal):
		lines = append(lines,
			"hint: nothing was committed; verify the bucket exists and the AWS credentials can write to it.",
			"hint: S3-compatible services need S3_ENDPOINT or object_store.endpoint.",
		)
	case errors.Is(err, tiered.ErrInvalidPath):
		lines = append(lines, "hint: keys must be relative slash-separated paths without empty, '.' or '..' segments.")
	case errors.Is(err, store.ErrTx):
		lines = append(lines, "hint: the database may be busy with another writer; rerun once it finishes.")
	case errors.Is(err, context.DeadlineExceeded):
		lines = append(lines, "hint: the operation timed out; check object storage reachability.")
	}

	var fetchErr *tiered.FetchError
	if errors.As(err, &fetchErr) && !errors.Is(err, tiered.ErrNoObjectStore) {
		lines = append(lines, "hint: the row exists but its bytes could not be fetched from object storage; there is no inline copy.")
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}

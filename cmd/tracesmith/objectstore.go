package main

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/dgraph-io/badger/v4"

	"github.com/tracesmith/tracesmith/internal/storageprovider"
	"github.com/tracesmith/tracesmith/internal/storageutil"
)

// objectRef names a storageutil.ObjectHandler plus the object key within
// it, parsed from a gs:// or badger:// destination.
type objectRef struct {
	handler storageutil.ObjectHandler
	name    string
	close   func() error
}

// resolveObjectRef parses dest into an object handler and key. A bare
// local path or file:// URI reports remote=false: callers should read or
// write it directly through internal/sbt instead of round-tripping
// through storageutil.
func resolveObjectRef(ctx context.Context, dest string) (ref *objectRef, remote bool, err error) {
	switch {
	case strings.HasPrefix(dest, "gs://"):
		bucket, object, ok := strings.Cut(strings.TrimPrefix(dest, "gs://"), "/")
		if !ok || object == "" {
			return nil, false, fmt.Errorf("malformed gs:// destination %q, want gs://bucket/object", dest)
		}
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("creating GCS client: %w", err)
		}
		handler := &storageprovider.Gcs{BucketHandle: client.Bucket(bucket)}
		return &objectRef{handler: handler, name: object, close: client.Close}, true, nil

	case strings.HasPrefix(dest, "badger://"):
		dbPath, key, ok := strings.Cut(strings.TrimPrefix(dest, "badger://"), "/")
		if !ok || key == "" {
			return nil, false, fmt.Errorf("malformed badger:// destination %q, want badger://path/key", dest)
		}
		db, err := badger.Open(badger.DefaultOptions(dbPath))
		if err != nil {
			return nil, false, fmt.Errorf("opening badger db %q: %w", dbPath, err)
		}
		handler := &storageprovider.Badger{DB: db}
		return &objectRef{handler: handler, name: key, close: db.Close}, true, nil

	default:
		return nil, false, nil
	}
}

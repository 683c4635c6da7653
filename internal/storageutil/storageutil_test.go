package storageutil_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/dgraph-io/badger/v4"
	"github.com/fsouza/fake-gcs-server/fakestorage"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/phayes/freeport"
	"github.com/pierrec/lz4/v4"

	"github.com/tracesmith/tracesmith/internal/storageprovider"
	"github.com/tracesmith/tracesmith/internal/storageutil"
)

const bucketName = "traces"

var gcsServer *fakestorage.Server
var badgerDB *badger.DB

// traceSummary stands in for the small JSON documents tracesmith persists
// alongside an SBT file (a replay Result, a fleet metrics report) rather
// than the SBT binary itself, which round-trips through storageutil.WriteObject/Get
// without any JSON framing.
type traceSummary struct {
	ApplicationName string   `json:"application_name"`
	KernelNames     []string `json:"kernel_names"`
}

func TestMain(m *testing.M) {
	port, err := freeport.GetFreePort()
	if err != nil {
		log.Fatalf("no free port found: %v", err)
	}
	publicHost := fmt.Sprintf("127.0.0.1:%d", port)
	gcsServer, err = fakestorage.NewServerWithOptions(fakestorage.Options{
		PublicHost: publicHost,
		Host:       "127.0.0.1",
		Port:       uint16(port),
		Scheme:     "http",
	})
	if err != nil {
		log.Fatalf("couldn't set up gcs server: %v", err)
	}
	os.Setenv("STORAGE_EMULATOR_HOST", publicHost)
	gcsServer.CreateBucketWithOpts(fakestorage.CreateBucketOpts{Name: bucketName})

	badgerDB, err = badger.Open(badger.DefaultOptions("").WithInMemory(true))
	if err != nil {
		log.Fatalf("couldn't create an in-memory badgerdb: %s", err.Error())
	}
	code := m.Run()

	err = badgerDB.Close()
	if err != nil {
		log.Printf("closing in-memory badgerdb: %s", err.Error())
	}

	os.Exit(code)
}

func TestCompressedWrite(t *testing.T) {
	ctx := context.Background()
	objectName := uuid.New().String()
	originalData := traceSummary{
		ApplicationName: "saxpy-bench",
		KernelNames:     []string{"saxpy", "gemm"},
	}

	t.Run("GCS", func(t *testing.T) {
		storageClient, err := storage.NewClient(ctx)
		if err != nil {
			t.Fatalf("we should be able to create a client: %v", err)
		}
		bucket := storageClient.Bucket(bucketName)
		err = storageutil.CompressedWrite(ctx, &storageprovider.Gcs{BucketHandle: bucket}, objectName, originalData)
		if err != nil {
			t.Fatalf("we should be able to write: %v", err)
		}
		object, err := gcsServer.GetObject(bucketName, objectName)
		if err != nil {
			t.Fatalf("we should be able to read the object: %v", err)
		}
		r := lz4.NewReader(bytes.NewBuffer(object.Content))
		uncompressedData, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("we should be able to uncompress the data: %v", err)
		}
		b, err := json.Marshal(originalData)
		if err != nil {
			t.Fatalf("we should be able to marshal this: %v", err)
		}
		if !bytes.Equal(b, bytes.TrimSpace(uncompressedData)) {
			t.Fatal("data should be identical")
		}
	})

	t.Run("Badger", func(t *testing.T) {
		err := storageutil.CompressedWrite(ctx, &storageprovider.Badger{DB: badgerDB}, objectName, originalData)
		if err != nil {
			t.Fatalf("we should be able to write: %s", err.Error())
		}

		var valueReader io.Reader
		err = badgerDB.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(objectName))
			if err != nil {
				txn.Discard()
				return err
			}

			value, err := item.ValueCopy(nil)
			if err != nil {
				txn.Discard()
				return err
			}

			valueReader = bytes.NewReader(value)
			return txn.Commit()
		})
		if err != nil {
			t.Fatalf("we should be able to read the object: %s", err.Error())
		}

		r := lz4.NewReader(valueReader)
		uncompressedData, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("we should be able to uncompress the data: %v", err)
		}
		b, err := json.Marshal(originalData)
		if err != nil {
			t.Fatalf("we should be able to marshal this: %v", err)
		}
		if !bytes.Equal(b, bytes.TrimSpace(uncompressedData)) {
			t.Fatal("data should be identical")
		}
	})

	t.Run("LocalFS", func(t *testing.T) {
		dir := t.TempDir()
		err := storageutil.CompressedWrite(ctx, &storageprovider.LocalFS{Root: dir}, objectName, originalData)
		if err != nil {
			t.Fatalf("we should be able to write: %v", err)
		}
		var got traceSummary
		if err := storageutil.UnmarshalCompressed(ctx, &storageprovider.LocalFS{Root: dir}, objectName, &got); err != nil {
			t.Fatalf("we should be able to read it back: %v", err)
		}
		if got.ApplicationName != originalData.ApplicationName || len(got.KernelNames) != len(originalData.KernelNames) {
			t.Fatalf("got %+v, want %+v", got, originalData)
		}
	})
}

func TestUnmarshalCompressed(t *testing.T) {
	ctx := context.Background()
	objectName := uuid.New().String()
	originalData := []byte(`{"application_name":"saxpy-bench","kernel_names":["saxpy","gemm"]}`)

	var compressedData bytes.Buffer
	w := lz4.NewWriter(&compressedData)
	_, _ = w.Write(originalData)
	err := w.Close()
	if err != nil {
		t.Fatalf("we should be able to close the writer: %v", err)
	}

	t.Run("GCS", func(t *testing.T) {
		gcsServer.CreateObject(fakestorage.Object{
			ObjectAttrs: fakestorage.ObjectAttrs{
				BucketName: bucketName,
				Name:       objectName,
			},
			Content: compressedData.Bytes(),
		})

		storageClient, err := storage.NewClient(ctx)
		if err != nil {
			t.Fatalf("we should be able to create a client: %v", err)
		}
		bucket := storageClient.Bucket(bucketName)
		var summary traceSummary
		err = storageutil.UnmarshalCompressed(ctx, &storageprovider.Gcs{BucketHandle: bucket}, objectName, &summary)
		if err != nil {
			t.Fatalf("we should be able to read the object: %v", err)
		}

		uncompressedData, err := json.Marshal(summary)
		if err != nil {
			t.Fatalf("we should be able to marshal back to JSON: %v", err)
		}
		if !bytes.Equal(originalData, uncompressedData) {
			t.Fatalf("data should be identical: %v %v", string(originalData), string(uncompressedData))
		}
	})

	t.Run("Badger", func(t *testing.T) {
		err := badgerDB.Update(func(txn *badger.Txn) error {
			err := txn.Set([]byte(objectName), compressedData.Bytes())
			if err != nil {
				txn.Discard()
				return err
			}

			return txn.Commit()
		})
		if err != nil {
			t.Fatalf("we should be write an object: %s", err.Error())
		}

		var summary traceSummary
		err = storageutil.UnmarshalCompressed(ctx, &storageprovider.Badger{DB: badgerDB}, objectName, &summary)
		if err != nil {
			t.Fatalf("we should be able to read the object: %v", err)
		}

		uncompressedData, err := json.Marshal(summary)
		if err != nil {
			t.Fatalf("we should be able to marshal back to JSON: %v", err)
		}
		if !bytes.Equal(originalData, uncompressedData) {
			t.Fatalf("data should be identical: %v %v", string(originalData), string(uncompressedData))
		}
	})
}

func TestWriteObjectRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	handler := &storageprovider.LocalFS{Root: dir}
	objectName := "trace.sbt"
	payload := []byte("not actually an SBT header, just opaque bytes")

	if err := storageutil.WriteObject(ctx, handler, objectName, bytes.NewReader(payload)); err != nil {
		t.Fatalf("WriteObject: %v", err)
	}

	rc, err := handler.Get(ctx, objectName)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
	if rc.Size() != int64(len(payload)) {
		t.Errorf("Size() = %d, want %d", rc.Size(), len(payload))
	}
}

func TestLocalFSGetMissingObject(t *testing.T) {
	handler := &storageprovider.LocalFS{Root: t.TempDir()}
	_, err := handler.Get(context.Background(), "does-not-exist")
	if err != storageutil.ErrObjectNotFound {
		t.Fatalf("got err=%v, want storageutil.ErrObjectNotFound", err)
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tracesmith/tracesmith/internal/sbt"
)

// openTraceFile resolves path to a local SBT reader, transparently
// fetching it first if path names a gs:// or badger:// object. The
// returned cleanup func removes any temporary local copy and must
// always be called.
func openTraceFile(path string) (*sbt.Reader, func(), error) {
	noop := func() {}

	ref, remote, err := resolveObjectRef(context.Background(), path)
	if err != nil {
		return nil, noop, err
	}
	if !remote {
		r, err := sbt.Open(path)
		return r, noop, err
	}
	defer ref.close()

	obj, err := ref.handler.Get(context.Background(), ref.name)
	if err != nil {
		return nil, noop, fmt.Errorf("fetching %q: %w", path, err)
	}
	defer obj.Close()

	tmp, err := os.CreateTemp("", "tracesmith-*.sbt")
	if err != nil {
		return nil, noop, err
	}
	if _, err := io.Copy(tmp, obj); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, noop, err
	}
	tmp.Close()

	cleanup := func() { os.Remove(tmp.Name()) }
	r, err := sbt.Open(tmp.Name())
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	return r, cleanup, nil
}

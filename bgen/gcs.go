package bgen

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// googleStorageReaderAt decorates a Google Storage object handle with ReadAt.
// Every call opens a ranged reader of exactly len(p) bytes.
type googleStorageReaderAt struct {
	ctx    context.Context
	object *storage.ObjectHandle
}

func openGoogleStorage(ctx context.Context, path string, client *storage.Client) (*googleStorageReaderAt, error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 {
		return nil, fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return &googleStorageReaderAt{
		ctx:    ctx,
		object: client.Bucket(pathParts[0]).Object(pathParts[1]),
	}, nil
}

func (g *googleStorageReaderAt) ReadAt(p []byte, offset int64) (int, error) {
	rdr, err := g.object.NewRangeReader(g.ctx, offset, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer rdr.Close()

	n, err := io.ReadFull(rdr, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

// Close is a nop: each ReadAt closes its own ranged reader.
func (g *googleStorageReaderAt) Close() error {
	return nil
}

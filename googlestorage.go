package parrec

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

type ReaderAtCloser interface {
	io.Reader
	io.ReaderAt
	io.Closer
}

// Decorates a Google Storage object handle with ReadAt, which is what
// REC slab access needs: each read fetches one byte range.
type GSReaderAtCloser struct {
	storage.ObjectHandle
	Context context.Context
	reader  *storage.Reader
	close   *func() error
}

// Read satisfies io.Reader for streaming the PAR text.
func (o *GSReaderAtCloser) Read(p []byte) (int, error) {
	var err error
	if o.reader == nil {
		o.reader, err = o.NewReader(o.Context)
		if err != nil {
			return 0, err
		}
	}
	return o.reader.Read(p)
}

// ReadAt satisfies io.ReaderAt. Note that this is dependent upon making
// p a buffer of the desired length to be read by NewRangeReader.
func (o *GSReaderAtCloser) ReadAt(p []byte, offset int64) (n int, err error) {
	rdr, err := o.NewRangeReader(o.Context, offset, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer rdr.Close()

	return io.ReadFull(rdr, p)
}

// Satisfies io.Closer. If o.close is not set, this is a nop beyond
// closing any open streaming reader.
func (o *GSReaderAtCloser) Close() error {
	if o.reader != nil {
		o.reader.Close()
	}
	if o.close != nil {
		return (*o.close)()
	}

	return nil
}

// MaybeOpenFromGoogleStorage opens a PAR or REC file that may sit on
// Google Storage (gs:// prefix) or on local disk, returning the handle
// and its size in bytes. The client may be nil for local paths.
func MaybeOpenFromGoogleStorage(path string, client *storage.Client) (ReaderAtCloser, int64, error) {
	if client != nil && strings.HasPrefix(path, "gs://") {
		// Detect the bucket and the path to the actual file
		pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
		if len(pathParts) != 2 {
			return nil, 0, fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
		}
		bucketName := pathParts[0]
		pathName := pathParts[1]

		// Open the bucket with default credentials
		bkt := client.Bucket(bucketName)
		handle := bkt.Object(pathName)

		wrappedHandle := &GSReaderAtCloser{
			ObjectHandle: *handle,
			Context:      context.Background(),
		}

		// Make a hard call to get the filesize
		attrs, err := wrappedHandle.ObjectHandle.Attrs(wrappedHandle.Context)
		if err != nil {
			return nil, 0, pfx.Err(fmt.Errorf("%s: %s", path, err))
		}

		return wrappedHandle, attrs.Size, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return f, 0, err
	}
	fstat, err := f.Stat()
	if err != nil {
		return f, 0, err
	}
	return f, fstat.Size(), nil
}

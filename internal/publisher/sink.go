package publisher

import (
	"fmt"
	"os"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// GzipFileSink is an io.Writer over a gzip-compressed NDJSON file, rotated
// at a byte-count threshold. Wired in so the publisher's optional
// on-disk trail can use the pack's compression library (klauspost/compress)
// rather than stdlib compress/gzip, matching the teacher's module-wide
// preference for the faster drop-in (seen elsewhere in the pack under
// strongdm-leash and RandomCodeSpace-Project-Argus).
type GzipFileSink struct {
	mu          sync.Mutex
	dir         string
	prefix      string
	maxBytes    int64
	file        *os.File
	gz          *gzip.Writer
	writtenThis int64
	rotateCount int
}

// NewGzipFileSink creates a sink that writes to dir/prefix-000.ndjson.gz,
// rotating to prefix-001.ndjson.gz, etc., once the uncompressed byte count
// written to the current file passes maxBytes.
func NewGzipFileSink(dir, prefix string, maxBytes int64) (*GzipFileSink, error) {
	s := &GzipFileSink{dir: dir, prefix: prefix, maxBytes: maxBytes}
	if err := s.rotate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *GzipFileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxBytes > 0 && s.writtenThis >= s.maxBytes {
		if err := s.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := s.gz.Write(p)
	s.writtenThis += int64(n)
	return n, err
}

func (s *GzipFileSink) rotate() error {
	if s.gz != nil {
		if err := s.gz.Close(); err != nil {
			return err
		}
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return err
		}
	}

	path := fmt.Sprintf("%s/%s-%03d.ndjson.gz", s.dir, s.prefix, s.rotateCount)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	s.file = f
	s.gz = gzip.NewWriter(f)
	s.writtenThis = 0
	s.rotateCount++
	return nil
}

// Close flushes and closes the current rotation.
func (s *GzipFileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gz != nil {
		if err := s.gz.Close(); err != nil {
			return err
		}
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

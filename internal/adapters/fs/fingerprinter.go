package fs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/zerr"
)

// SampleSize is the length of each content sample in sampled mode.
const SampleSize = 64 << 10

var _ ports.Fingerprinter = (*Fingerprinter)(nil)

// Fingerprinter computes xxhash fingerprints of source images and memoizes
// them per path until the file's size or mtime changes.
type Fingerprinter struct {
	mode string

	mu   sync.Mutex
	memo map[string]domain.SourceImage
}

// NewFingerprinter creates a Fingerprinter for one of the domain fingerprint modes.
// Unknown modes fall back to sampled.
func NewFingerprinter(mode string) *Fingerprinter {
	switch mode {
	case domain.FingerprintStat, domain.FingerprintSampled, domain.FingerprintContent:
	default:
		mode = domain.FingerprintSampled
	}
	return &Fingerprinter{mode: mode, memo: make(map[string]domain.SourceImage)}
}

// Fingerprint stats the file and returns its memoized or freshly computed fingerprint.
func (f *Fingerprinter) Fingerprint(path string) (domain.SourceImage, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.SourceImage{}, zerr.With(zerr.Wrap(err, "failed to resolve path"), "path", path)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return domain.SourceImage{}, zerr.With(zerr.Wrap(domain.ErrSourceNotFound, "fingerprint"), "path", abs)
		}
		return domain.SourceImage{}, zerr.With(zerr.Wrap(err, "failed to stat source"), "path", abs)
	}
	if !info.Mode().IsRegular() {
		return domain.SourceImage{}, zerr.With(zerr.Wrap(domain.ErrUnsupportedFormat, "not a regular file"), "path", abs)
	}

	f.mu.Lock()
	cached, ok := f.memo[abs]
	f.mu.Unlock()
	if ok && cached.SameStamp(info.Size(), info.ModTime()) {
		return cached, nil
	}

	hash, err := f.compute(abs, info)
	if err != nil {
		return domain.SourceImage{}, err
	}

	src := domain.SourceImage{
		Path:        abs,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Fingerprint: domain.Fingerprint(fmt.Sprintf("%016x", hash)),
	}

	f.mu.Lock()
	f.memo[abs] = src
	f.mu.Unlock()

	return src, nil
}

// Invalidate drops the memoized fingerprint for path.
func (f *Fingerprinter) Invalidate(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	f.mu.Lock()
	delete(f.memo, abs)
	f.mu.Unlock()
}

func (f *Fingerprinter) compute(path string, info iofs.FileInfo) (uint64, error) {
	hasher := xxhash.New()
	_, _ = hasher.WriteString(f.mode)
	_, _ = hasher.Write([]byte{0})

	if f.mode == domain.FingerprintContent {
		sum, err := ComputeFileHash(path)
		if err != nil {
			return 0, err
		}
		writeUint64(hasher, uint64(info.Size())) //nolint:gosec // sizes are non-negative
		writeUint64(hasher, sum)
		return hasher.Sum64(), nil
	}

	_, _ = hasher.WriteString(path)
	_, _ = hasher.Write([]byte{0})
	writeUint64(hasher, uint64(info.Size()))              //nolint:gosec // sizes are non-negative
	writeUint64(hasher, uint64(info.ModTime().UnixNano())) //nolint:gosec // bit pattern only

	if f.mode == domain.FingerprintSampled {
		if err := hashSamples(path, info.Size(), hasher); err != nil {
			return 0, err
		}
	}

	return hasher.Sum64(), nil
}

// hashSamples hashes the head, middle and tail of the file, or the whole file
// when it is smaller than three samples.
func hashSamples(path string, size int64, hasher io.Writer) error {
	file, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer file.Close() //nolint:errcheck // Best effort close in defer

	if size <= 3*SampleSize {
		if _, err := io.Copy(hasher, file); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
		}
		return nil
	}

	buf := make([]byte, SampleSize)
	for _, off := range []int64{0, size/2 - SampleSize/2, size - SampleSize} {
		if _, err := file.ReadAt(buf, off); err != nil && !errors.Is(err, io.EOF) {
			return zerr.With(zerr.Wrap(err, "failed to sample file content"), "path", path)
		}
		_, _ = hasher.Write(buf)
	}
	return nil
}

// ComputeFileHash computes the XXHash of a file's content.
func ComputeFileHash(path string) (uint64, error) {
	file, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer file.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return hasher.Sum64(), nil
}

func writeUint64(w io.Writer, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = w.Write(buf[:])
}

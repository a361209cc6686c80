package zipfilter

import (
	"errors"
	"fmt"
	"io"

	"github.com/yeka/zip"
	"go.uber.org/zap"
)

// OpenEntry opens the named entry for reading, trying the normalized password
// list in order. The caller owns the returned reader.
func (f *Filter) OpenEntry(name string) (io.ReadCloser, error) {
	zf := f.find(name)
	if zf == nil || zf.FileInfo().IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	return f.open(zf)
}

func (f *Filter) open(zf *zip.File) (io.ReadCloser, error) {
	logger := f.logger.With(zap.String("entry", zf.Name), zap.Bool("encrypted", zf.IsEncrypted()))

	if !zf.IsEncrypted() {
		// Any candidate opens a plain entry; the first one is always "no password".
		logger.Debug("opening entry", zap.Int("candidate", 0))
		rc, err := zf.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open entry %s: %w", zf.Name, err)
		}
		return rc, nil
	}

	for i, password := range f.passwords {
		logger.Debug("trying password candidate", zap.Int("candidate", i), zap.Bool("empty", password == nil))

		if password == nil {
			continue
		}

		if err := verifyPassword(zf, *password); err != nil {
			logger.Debug("password candidate rejected", zap.Int("candidate", i), zap.Error(err))
			continue
		}

		// Verification consumed its reader; hand out a fresh one.
		rc, err := zf.Open()
		if err != nil {
			logger.Debug("password candidate rejected on reopen", zap.Int("candidate", i), zap.Error(err))
			continue
		}

		logger.Debug("password candidate accepted", zap.Int("candidate", i))
		return rc, nil
	}

	return nil, &DecryptionError{Entry: zf.Name, Attempts: len(f.passwords)}
}

// verifyPassword decrypts the whole entry with password and discards the
// output. AES entries fail on the key verifier or the HMAC, ZipCrypto entries
// only at EOF when the CRC-32 is checked.
func verifyPassword(zf *zip.File, password string) (err error) {
	zf.SetPassword(password)

	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, rc.Close())
	}()

	_, err = io.Copy(io.Discard, rc)
	return err
}

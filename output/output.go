package output

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FileMode is the permission of published images
var FileMode os.FileMode = 0644

// Write will publish data at path atomically: the bytes go to a temporary
// file in the same directory which is synced and then renamed over path. On
// failure the temporary file is removed and any existing file at path is left
// as it was.
func Write(path string, data []byte) error {
	return WriteMode(path, data, FileMode)
}

// WriteMode will publish data at path like Write, with the given permissions
func WriteMode(path string, data []byte, mode os.FileMode) (err error) {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "could not create temp file for %s", path)
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return errors.Wrapf(err, "could not write %s", tmpPath)
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrapf(err, "could not sync %s", tmpPath)
	}
	if err = tmp.Chmod(mode); err != nil {
		return errors.Wrapf(err, "could not chmod %s", tmpPath)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "could not close %s", tmpPath)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return errors.Wrapf(err, "could not publish %s", path)
	}

	logrus.Debugf("wrote %s [l=%d]", path, len(data))

	return nil
}

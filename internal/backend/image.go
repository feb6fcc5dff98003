package backend

import (
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/taleyport/internal/errors"
)

// ReadImageFile loads an image from disk and checks that it is one.
func ReadImageFile(path string) (ImageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ImageFile{}, errors.NewFileNotFoundError(path)
		}
		return ImageFile{}, errors.Wrap(errors.ErrCodeFileReadFailed, "failed to read image "+path, err)
	}

	f := ImageFile{Filename: filepath.Base(path), Data: data}
	if _, err := imageContentType(f); err != nil {
		return ImageFile{}, err
	}
	return f, nil
}

package validators

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrFileTooLarge        = errors.New("file too large")
	ErrFileTypeUnsupported = errors.New("unsupported file type, use jpeg, png or webp")
	ErrNoFile              = errors.New("no file provided")
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

// ImageValidator checks an uploaded recipe image. On success the returned
// file is rewound and the detected mime type is returned with it.
func ImageValidator(fh *multipart.FileHeader, maxSize int64) (int, multipart.File, *mimetype.MIME, error) {
	if fh == nil {
		return http.StatusBadRequest, nil, nil, ErrNoFile
	}

	// Header size is easy to spoof, but it's a cheap reject for legit clients
	if fh.Size > maxSize {
		return http.StatusRequestEntityTooLarge, nil, nil, ErrFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return http.StatusInternalServerError, nil, nil, err
	}

	code, mime, err := CheckImage(f, maxSize)
	if err != nil {
		f.Close()
		return code, nil, nil, err
	}

	return 0, f, mime, nil
}

// CheckImage sniffs the content of r and makes sure it's a supported
// image no bigger than maxSize. r is rewound afterwards.
func CheckImage(r io.ReadSeeker, maxSize int64) (int, *mimetype.MIME, error) {
	mime, err := mimetype.DetectReader(r)
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}

	if !mimetype.EqualsAny(mime.String(), allowedImageTypes...) {
		return http.StatusBadRequest, nil, ErrFileTypeUnsupported
	}

	if _, err := r.Seek(maxSize, io.SeekStart); err != nil {
		return http.StatusInternalServerError, nil, err
	}

	buf := make([]byte, 1)
	n, err := r.Read(buf)
	if err != nil && err != io.EOF {
		return http.StatusInternalServerError, nil, err
	}

	if n > 0 {
		return http.StatusRequestEntityTooLarge, nil, ErrFileTooLarge
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return http.StatusInternalServerError, nil, err
	}

	return 0, mime, nil
}

package httpserver

import (
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/upload"
)

const MaxProductImages = 10

// Uploader turns multipart image fields into stored, resized images.
type Uploader struct {
	Processor *upload.Processor
	Now       func() time.Time
}

func (u *Uploader) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

func formFiles(c echo.Context, field string) ([]*multipart.FileHeader, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, apperr.Validation("Invalid multipart form")
	}
	return form.File[field], nil
}

// ProductImages stores the files sent as "images". It returns nil when the
// request carries none.
func (u *Uploader) ProductImages(c echo.Context, productID uuid.UUID) ([]string, error) {
	files, err := formFiles(c, "images")
	if err != nil || len(files) == 0 {
		return nil, err
	}
	if len(files) > MaxProductImages {
		return nil, apperr.Validation("A product can have at most %d images", MaxProductImages)
	}

	ts := u.now()
	names := make([]string, 0, len(files))
	for i, fh := range files {
		name, err := u.Processor.ProcessFile(c.Request().Context(), fh, upload.FolderProducts, upload.ProductImageName(productID, ts, i+1))
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// single stores the first file of field; ok is false when there is none.
func (u *Uploader) single(c echo.Context, field, folder, name string) (string, bool, error) {
	files, err := formFiles(c, field)
	if err != nil || len(files) == 0 {
		return "", false, err
	}
	stored, err := u.Processor.ProcessFile(c.Request().Context(), files[0], folder, name)
	if err != nil {
		return "", false, err
	}
	return stored, true, nil
}

func (u *Uploader) CategoryThumbnail(c echo.Context) (string, bool, error) {
	return u.single(c, "thumbnail", upload.FolderCategories, upload.CategoryThumbnailName(u.now()))
}

func (u *Uploader) UserPhoto(c echo.Context, userID uuid.UUID) (string, bool, error) {
	return u.single(c, "photo", upload.FolderUsers, upload.UserPhotoName(userID, u.now()))
}

package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/apperr"
)

const (
	DefaultSize    = 500
	DefaultQuality = 90
	MaxFileSize    = 10 << 20
)

// Processor validates uploaded images, crops them to a square and stores
// them as JPEG.
type Processor struct {
	Store   Store
	Size    int
	Quality int
}

func NewProcessor(store Store) *Processor {
	return &Processor{Store: store, Size: DefaultSize, Quality: DefaultQuality}
}

func (p *Processor) ProcessFile(ctx context.Context, fh *multipart.FileHeader, folder, name string) (string, error) {
	if fh.Size > MaxFileSize {
		return "", apperr.Validation("Image %s is larger than %d MB", fh.Filename, MaxFileSize>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return p.Process(ctx, f, folder, name)
}

func (p *Processor) Process(ctx context.Context, r io.Reader, folder, name string) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(raw) > MaxFileSize {
		return "", apperr.Validation("Image is larger than %d MB", MaxFileSize>>20)
	}
	if !strings.HasPrefix(http.DetectContentType(raw), "image/") {
		return "", apperr.Validation("Only image files can be uploaded")
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return "", apperr.Validation("Unsupported image format")
	}
	img = imaging.Fill(img, p.Size, p.Size, imaging.Center, imaging.Lanczos)

	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(p.Quality)); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return p.Store.Save(ctx, folder, name, out.Bytes())
}

func ProductImageName(productID uuid.UUID, ts time.Time, i int) string {
	return fmt.Sprintf("product-%s-%d-%d.jpeg", productID, ts.UnixMilli(), i)
}

func CategoryThumbnailName(ts time.Time) string {
	return fmt.Sprintf("category-%d.jpeg", ts.UnixMilli())
}

func UserPhotoName(userID uuid.UUID, ts time.Time) string {
	return fmt.Sprintf("user-%s-%d.jpeg", userID, ts.UnixMilli())
}

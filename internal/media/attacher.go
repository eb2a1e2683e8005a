package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ecomx/internal/domain"
)

// ImageLinker records stored images against products
type ImageLinker interface {
	AttachImage(ctx context.Context, productID uint, img *domain.Image) error
	CountImages(ctx context.Context, productID uint) (int64, error)
}

// Result summarises one attach run
type Result struct {
	Added  int
	Errors []string
}

// Attacher downloads attachments, stores them and links them to products.
// It never runs inside a database transaction.
type Attacher struct {
	fetcher Fetcher
	store   ObjectStore
	images  ImageLinker
	timeout time.Duration
}

// NewAttacher returns an Attacher bounding each item by timeout
func NewAttacher(fetcher Fetcher, store ObjectStore, images ImageLinker, timeout time.Duration) *Attacher {
	return &Attacher{fetcher: fetcher, store: store, images: images, timeout: timeout}
}

// Attach processes every item; failures are counted per item and never abort the run.
// Keys are store_id/product_id/index, with index continuing after existing images.
func (a *Attacher) Attach(ctx context.Context, product *domain.Product, items []Item) Result {
	var res Result
	offset, err := a.images.CountImages(ctx, product.ID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"product_id": product.ID, "error": err.Error()}).Warn("Image count failed")
	}

	for i, item := range items {
		if !strings.HasPrefix(strings.ToLower(item.ContentType), "image/") {
			res.Errors = append(res.Errors, fmt.Sprintf("File type %s is not an image and was skipped", item.ContentType))
			continue
		}
		key := fmt.Sprintf("%s/%d/%d", product.StoreID, product.ID, offset+int64(i))
		if err := a.attachOne(ctx, product.ID, key, item); err != nil {
			logrus.WithFields(logrus.Fields{
				"product_id": product.ID,
				"key":        key,
				"error":      err.Error(),
			}).Error("Image attach failed")
			res.Errors = append(res.Errors, fmt.Sprintf("Error processing image %d", i))
			continue
		}
		res.Added++
	}

	logrus.WithFields(logrus.Fields{
		"product_id": product.ID,
		"added":      res.Added,
		"failed":     len(res.Errors),
	}).Info("Product images processed")
	return res
}

func (a *Attacher) attachOne(ctx context.Context, productID uint, key string, item Item) error {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	data, err := a.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExternalService, err)
	}
	stored, err := a.store.Put(ctx, key, data, item.ContentType)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExternalService, err)
	}
	return a.images.AttachImage(ctx, productID, &domain.Image{PublicID: stored.PublicID, URL: stored.URL})
}

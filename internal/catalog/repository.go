// Package catalog is the store-scoped persistence for categories, products
// and product images.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ecomx/internal/domain"
)

// ProductInput is the editable part of a product
type ProductInput struct {
	Name         string
	CategoryName string
	Price        decimal.Decimal
	Description  string
	Stock        int
}

// CategoryCount is a category with the number of products using it
type CategoryCount struct {
	domain.Category
	Products int64
}

// CategoryInUseError refuses deleting a category that products still reference
type CategoryInUseError struct {
	Name     string
	Products int64
}

func (e *CategoryInUseError) Error() string {
	return fmt.Sprintf("category %q is used by %d products", e.Name, e.Products)
}

// Unwrap lets errors.Is match domain.ErrConflict
func (e *CategoryInUseError) Unwrap() error { return domain.ErrConflict }

// CategoryExistsError refuses a category name that the store already uses
type CategoryExistsError struct {
	Name string
	ID   uint
}

func (e *CategoryExistsError) Error() string {
	return fmt.Sprintf("category %q already exists with id %d", e.Name, e.ID)
}

// Unwrap lets errors.Is match domain.ErrConflict
func (e *CategoryExistsError) Unwrap() error { return domain.ErrConflict }

// Repository reads and writes catalog rows
type Repository interface {
	SellerByPhone(ctx context.Context, phone string) (*domain.User, error)
	StoreByOwner(ctx context.Context, ownerID uint) (*domain.Store, error)

	ListProducts(ctx context.Context, storeID uuid.UUID) ([]domain.Product, error)
	GetProduct(ctx context.Context, storeID uuid.UUID, id uint) (*domain.Product, error)
	LatestProduct(ctx context.Context, storeID uuid.UUID) (*domain.Product, error)
	CreateProduct(ctx context.Context, storeID uuid.UUID, in ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, storeID uuid.UUID, id uint, in ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, storeID uuid.UUID, id uint) (*domain.Product, error)

	ListCategories(ctx context.Context, storeID uuid.UUID) ([]CategoryCount, error)
	AddCategory(ctx context.Context, storeID uuid.UUID, name string) (*domain.Category, error)
	RenameCategory(ctx context.Context, storeID uuid.UUID, oldName, newName string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, storeID uuid.UUID, name string) (*domain.Category, error)

	AttachImage(ctx context.Context, productID uint, img *domain.Image) error
	CountImages(ctx context.Context, productID uint) (int64, error)
}

type gormRepo struct {
	db *gorm.DB
}

// NewGormRepository returns a Repository backed by gorm
func NewGormRepository(db *gorm.DB) Repository {
	return &gormRepo{db: db}
}

// SellerByPhone finds a seller by phone number; a "whatsapp:" prefix is ignored.
func (r *gormRepo) SellerByPhone(ctx context.Context, phone string) (*domain.User, error) {
	phone = strings.TrimSpace(strings.TrimPrefix(phone, "whatsapp:"))
	if phone == "" {
		return nil, fmt.Errorf("empty phone number: %w", domain.ErrNotFound)
	}
	var u domain.User
	err := r.db.WithContext(ctx).
		Where("phone_number = ? AND user_type = ?", phone, domain.UserTypeSeller).
		First(&u).Error
	if err != nil {
		return nil, notFound(err, "seller %s", phone)
	}
	return &u, nil
}

func (r *gormRepo) StoreByOwner(ctx context.Context, ownerID uint) (*domain.Store, error) {
	var s domain.Store
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&s).Error; err != nil {
		return nil, notFound(err, "store of user %d", ownerID)
	}
	return &s, nil
}

func (r *gormRepo) ListProducts(ctx context.Context, storeID uuid.UUID) ([]domain.Product, error) {
	var products []domain.Product
	err := r.db.WithContext(ctx).Preload("Category").Preload("Images").
		Where("store_id = ?", storeID).Order("id").Find(&products).Error
	return products, err
}

func (r *gormRepo) GetProduct(ctx context.Context, storeID uuid.UUID, id uint) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).Preload("Category").
		Where("id = ? AND store_id = ?", id, storeID).First(&p).Error; err != nil {
		return nil, notFound(err, "product %d", id)
	}
	return &p, nil
}

// LatestProduct returns the most recently created product of the store
func (r *gormRepo) LatestProduct(ctx context.Context, storeID uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).Where("store_id = ?", storeID).
		Order("created_at DESC, id DESC").First(&p).Error; err != nil {
		return nil, notFound(err, "products of store %s", storeID)
	}
	return &p, nil
}

func (r *gormRepo) CreateProduct(ctx context.Context, storeID uuid.UUID, in ProductInput) (*domain.Product, error) {
	p := domain.Product{
		StoreID:     storeID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.CategoryName != "" {
			cat, err := getOrCreateCategory(tx, storeID, in.CategoryName)
			if err != nil {
				return err
			}
			p.CategoryID = &cat.ID
			p.Category = cat
		}
		return tx.Omit("Category").Create(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepo) UpdateProduct(ctx context.Context, storeID uuid.UUID, id uint, in ProductInput) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND store_id = ?", id, storeID).First(&p).Error; err != nil {
			return notFound(err, "product %d", id)
		}
		updates := map[string]any{
			"name":        in.Name,
			"description": in.Description,
			"price":       in.Price,
			"stock":       in.Stock,
		}
		if in.CategoryName != "" {
			cat, err := getOrCreateCategory(tx, storeID, in.CategoryName)
			if err != nil {
				return err
			}
			updates["category_id"] = cat.ID
		}
		if err := tx.Model(&p).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Preload("Category").First(&p, p.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProduct removes the product with its image links and cart lines
func (r *gormRepo) DeleteProduct(ctx context.Context, storeID uuid.UUID, id uint) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND store_id = ?", id, storeID).First(&p).Error; err != nil {
			return notFound(err, "product %d", id)
		}
		if err := tx.Model(&p).Association("Images").Clear(); err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", p.ID).Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepo) ListCategories(ctx context.Context, storeID uuid.UUID) ([]CategoryCount, error) {
	var cats []domain.Category
	db := r.db.WithContext(ctx)
	if err := db.Where("store_id = ?", storeID).Order("id").Find(&cats).Error; err != nil {
		return nil, err
	}
	out := make([]CategoryCount, 0, len(cats))
	for _, c := range cats {
		n, err := productsIn(db, c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, CategoryCount{Category: c, Products: n})
	}
	return out, nil
}

// AddCategory creates a category; an existing name yields *CategoryExistsError
func (r *gormRepo) AddCategory(ctx context.Context, storeID uuid.UUID, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name is required: %w", domain.ErrValidation)
	}
	var c domain.Category
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Category
		err := tx.Where("store_id = ? AND name = ?", storeID, name).First(&existing).Error
		if err == nil {
			return &CategoryExistsError{Name: name, ID: existing.ID}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		c = domain.Category{StoreID: storeID, Name: name}
		return tx.Create(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RenameCategory renames a category unless another category already has the new name
func (r *gormRepo) RenameCategory(ctx context.Context, storeID uuid.UUID, oldName, newName string) (*domain.Category, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, fmt.Errorf("new category name is required: %w", domain.ErrValidation)
	}
	var c domain.Category
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("store_id = ? AND name = ?", storeID, strings.TrimSpace(oldName)).First(&c).Error; err != nil {
			return notFound(err, "category %q", oldName)
		}
		var clash domain.Category
		err := tx.Where("store_id = ? AND name = ?", storeID, newName).First(&clash).Error
		if err == nil && clash.ID != c.ID {
			return &CategoryExistsError{Name: newName, ID: clash.ID}
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		c.Name = newName
		return tx.Model(&c).Update("name", newName).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCategory removes an unused category; one still in use yields *CategoryInUseError
func (r *gormRepo) DeleteCategory(ctx context.Context, storeID uuid.UUID, name string) (*domain.Category, error) {
	var c domain.Category
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("store_id = ? AND name = ?", storeID, strings.TrimSpace(name)).First(&c).Error; err != nil {
			return notFound(err, "category %q", name)
		}
		n, err := productsIn(tx, c.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return &CategoryInUseError{Name: c.Name, Products: n}
		}
		return tx.Delete(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepo) AttachImage(ctx context.Context, productID uint, img *domain.Image) error {
	return r.db.WithContext(ctx).Model(&domain.Product{ID: productID}).Association("Images").Append(img)
}

func (r *gormRepo) CountImages(ctx context.Context, productID uint) (int64, error) {
	assoc := r.db.WithContext(ctx).Model(&domain.Product{ID: productID}).Association("Images")
	n := assoc.Count()
	return n, assoc.Error
}

func getOrCreateCategory(tx *gorm.DB, storeID uuid.UUID, name string) (*domain.Category, error) {
	c := domain.Category{StoreID: storeID, Name: strings.TrimSpace(name)}
	if err := tx.Where("store_id = ? AND name = ?", storeID, c.Name).FirstOrCreate(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func productsIn(db *gorm.DB, categoryID uint) (int64, error) {
	var n int64
	err := db.Model(&domain.Product{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, err
}

// notFound maps gorm.ErrRecordNotFound to domain.ErrNotFound
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, domain.ErrNotFound)...)
	}
	return err
}

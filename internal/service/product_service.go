package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/domain"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrice = errors.New("price must be greater than zero")
)

// ProductInput carries the seller-editable fields of a product
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	ImageURL    string
	IsActive    bool
}

// ProductService defines the interface for catalog business logic
type ProductService interface {
	List(ctx context.Context, filter repository.ProductFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Product, error)
	Create(ctx context.Context, sellerID uuid.UUID, input ProductInput) (*domain.Product, error)
	Update(ctx context.Context, productID, sellerID uuid.UUID, input ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, productID, sellerID uuid.UUID) error
}

type productService struct {
	productRepo repository.ProductRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

// List returns the public catalog page for the given filter
func (s *productService) List(ctx context.Context, filter repository.ProductFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}
	return s.productRepo.List(ctx, filter, page, pageSize, sortBy, sortOrder)
}

// Get returns one active product
func (s *productService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindActiveByID(ctx, id)
}

// ListBySeller returns all of a seller's own products
func (s *productService) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Product, error) {
	return s.productRepo.ListBySeller(ctx, sellerID)
}

// Create adds a product to the seller's catalog
func (s *productService) Create(ctx context.Context, sellerID uuid.UUID, input ProductInput) (*domain.Product, error) {
	if !input.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}

	product := &domain.Product{
		ID:          uuid.New(),
		SellerID:    sellerID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		ImageURL:    input.ImageURL,
		IsActive:    input.IsActive,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// Update modifies one of the seller's own products. Ownership is enforced by
// the seller-scoped update; a foreign product reads as not found.
func (s *productService) Update(ctx context.Context, productID, sellerID uuid.UUID, input ProductInput) (*domain.Product, error) {
	if !input.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}

	product := &domain.Product{
		ID:          productID,
		SellerID:    sellerID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		ImageURL:    input.ImageURL,
		IsActive:    input.IsActive,
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	return s.productRepo.FindByID(ctx, productID)
}

// Delete removes one of the seller's own products
func (s *productService) Delete(ctx context.Context, productID, sellerID uuid.UUID) error {
	return s.productRepo.Delete(ctx, productID, sellerID)
}

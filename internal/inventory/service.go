package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/backoffice-api/pkg/db/models"
	dbtypes "github.com/angelmondragon/backoffice-api/pkg/db/types"
	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
)

type itemRepository interface {
	List(ctx context.Context) ([]models.InventoryItem, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	Create(ctx context.Context, item *models.InventoryItem) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service manages the item catalog.
type Service interface {
	List(ctx context.Context) ([]models.InventoryItem, error)
	Get(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	Create(ctx context.Context, input CreateInput, files []FileSource) (*models.InventoryItem, error)
	Update(ctx context.Context, id uuid.UUID, patch UpdateInput, file FileSource) (*models.InventoryItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ServiceParams struct {
	Repo   itemRepository
	Images ImageUploader
	Logger *logger.Logger
}

type service struct {
	repo   itemRepository
	images ImageUploader
	logg   *logger.Logger
}

// NewService wires the catalog. Images may be nil when object storage is
// disabled; uploads then fail with a dependency error.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("inventory repository required")
	}
	return &service{
		repo:   params.Repo,
		images: params.Images,
		logg:   params.Logger,
	}, nil
}

func (s *service) List(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: list items")
	}
	return items, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "db: load item")
	}
	return item, nil
}

func (s *service) Create(ctx context.Context, input CreateInput, files []FileSource) (*models.InventoryItem, error) {
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "No files uploaded")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	urls, err := s.upload(ctx, files)
	if err != nil {
		return nil, err
	}

	item := &models.InventoryItem{
		Name:        strings.TrimSpace(input.Name),
		Quantity:    *input.Quantity,
		Location:    input.Location,
		Description: input.Description,
		Price:       *input.Price,
		Images:      dbtypes.StringList(keepImageURLs(urls)),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: insert item")
	}
	return item, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, patch UpdateInput, file FileSource) (*models.InventoryItem, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "db: load item")
	}

	fields := patch.columns()
	if file != nil {
		urls, err := s.upload(ctx, []FileSource{file})
		if err != nil {
			return nil, err
		}
		fields["images"] = dbtypes.StringList(keepImageURLs(urls))
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, notFoundOr(err, "db: update item")
		}
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "db: delete item")
	}
	return nil
}

func (s *service) upload(ctx context.Context, files []FileSource) ([]string, error) {
	if s.images == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image storage unavailable")
	}
	return s.images.UploadAll(ctx, files)
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}

// Package mediaimages manages the image references attached to media.
// Blobs live elsewhere; only routes are stored.
package mediaimages

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/access"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/logger"
	"github.com/angelmondragon/adspace-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes image CRUD for media owners and admins.
type Service interface {
	Create(ctx context.Context, actor access.Actor, mediaID uint64, route string) (*models.MediaImage, error)
	Update(ctx context.Context, actor access.Actor, id uint64, route string) (*models.MediaImage, error)
	Delete(ctx context.Context, actor access.Actor, id uint64) error
	Get(ctx context.Context, actor access.Actor, id uint64) (*models.MediaImage, error)
	List(ctx context.Context, actor access.Actor, mediaID uint64, params pagination.Params) (pagination.Page[models.MediaImage], error)
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds the image service. logg may be nil.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("media image repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, mediaID uint64, route string) (*models.MediaImage, error) {
	clean, mediaType, err := checkRoute(route)
	if err != nil {
		return nil, err
	}
	if err := s.ownMedia(ctx, s.repo, actor, mediaID); err != nil {
		return nil, err
	}
	image := &models.MediaImage{MediaID: mediaID, Route: clean}
	if err := s.repo.Create(ctx, image); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create media image")
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"media_id": mediaID, "image_id": image.ID, "mime_type": mediaType})
	s.logg.Info(logCtx, "media_image.created")
	return image, nil
}

func (s *service) Update(ctx context.Context, actor access.Actor, id uint64, route string) (*models.MediaImage, error) {
	clean, _, err := checkRoute(route)
	if err != nil {
		return nil, err
	}
	var image *models.MediaImage
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		image, err = s.ownedImage(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		image.Route = clean
		if err := repo.Save(ctx, image); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update media image")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

func (s *service) Delete(ctx context.Context, actor access.Actor, id uint64) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.ownedImage(ctx, repo, actor, id); err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete media image")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, actor access.Actor, id uint64) (*models.MediaImage, error) {
	return s.ownedImage(ctx, s.repo, actor, id)
}

func (s *service) List(ctx context.Context, actor access.Actor, mediaID uint64, params pagination.Params) (pagination.Page[models.MediaImage], error) {
	var page pagination.Page[models.MediaImage]
	if err := s.ownMedia(ctx, s.repo, actor, mediaID); err != nil {
		return page, err
	}
	perPage, err := pagination.NormalizePerPage(params.PerPage)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	afterID, err := pagination.DecodeKeyset(params.PageToken)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	rows, err := s.repo.List(ctx, mediaID, afterID, perPage+1)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list media images")
	}
	return pagination.KeysetPage(rows, perPage, func(img models.MediaImage) uint64 { return img.ID }), nil
}

func (s *service) ownedImage(ctx context.Context, repo Repository, actor access.Actor, id uint64) (*models.MediaImage, error) {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider); err != nil {
		return nil, err
	}
	image, err := repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media image not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media image")
	}
	if err := s.ownMedia(ctx, repo, actor, image.MediaID); err != nil {
		return nil, err
	}
	return image, nil
}

func (s *service) ownMedia(ctx context.Context, repo Repository, actor access.Actor, mediaID uint64) error {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider); err != nil {
		return err
	}
	media, err := repo.FindMedia(ctx, mediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media")
	}
	return actor.RequireOwnerOrAdmin(media.UserID, "media")
}

func checkRoute(route string) (string, string, error) {
	clean, mediaType, err := normalizeRoute(route)
	if err != nil {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "invalid media image").
			WithDetails(map[string]any{"route": err.Error()})
	}
	return clean, mediaType, nil
}

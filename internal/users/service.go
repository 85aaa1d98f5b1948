package users

import (
	"context"
	"errors"

	"github.com/angelmondragon/backoffice-api/pkg/db/models"
	"github.com/angelmondragon/backoffice-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
)

type customerLister interface {
	ListByRole(ctx context.Context, role enums.Role) ([]models.User, error)
}

// Service exposes account listings for the back office.
type Service interface {
	ListCustomers(ctx context.Context) ([]CustomerDTO, error)
}

type service struct {
	repo customerLister
}

func NewService(repo customerLister) (Service, error) {
	if repo == nil {
		return nil, errors.New("users repository required")
	}
	return &service{repo: repo}, nil
}

// ListCustomers returns every account with the "user" role.
func (s *service) ListCustomers(ctx context.Context) ([]CustomerDTO, error) {
	rows, err := s.repo.ListByRole(ctx, enums.RoleUser)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	out := make([]CustomerDTO, 0, len(rows))
	for _, u := range rows {
		out = append(out, CustomerDTO{
			ID:        u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			Role:      u.Role,
		})
	}
	return out, nil
}

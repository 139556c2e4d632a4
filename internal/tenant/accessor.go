package tenant

import (
	"context"
	"errors"

	"github.com/rafaeljc/pollconf/internal/pollinterval"
	"github.com/rafaeljc/pollconf/internal/store"
)

var _ pollinterval.TenantAccessor = (*Accessor)(nil)

// Accessor exposes the metadata of the tenant bound to the context.
type Accessor struct {
	repo store.TenantMetadataRepository
}

// NewAccessor binds repo to the context tenant.
func NewAccessor(repo store.TenantMetadataRepository) *Accessor {
	if repo == nil {
		panic("tenant: repository cannot be nil")
	}
	return &Accessor{repo: repo}
}

// TenantMetadata returns the current tenant's overrides, or (nil, nil) when it has no row.
func (a *Accessor) TenantMetadata(ctx context.Context) (*pollinterval.TenantMetadata, error) {
	id, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}

	m, err := a.repo.GetTenantMetadata(ctx, id)
	if errors.Is(err, store.ErrTenantNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &pollinterval.TenantMetadata{
		PollingTime:        m.PollingTime,
		PollingOverdueTime: m.PollingOverdueTime,
	}, nil
}

// SetPollingTime writes the current tenant's polling_time.
func (a *Accessor) SetPollingTime(ctx context.Context, value *string) error {
	id, err := FromContext(ctx)
	if err != nil {
		return err
	}
	return a.repo.SetPollingTime(ctx, id, value)
}

// SetPollingOverdueTime writes the current tenant's polling_overdue_time.
func (a *Accessor) SetPollingOverdueTime(ctx context.Context, value *string) error {
	id, err := FromContext(ctx)
	if err != nil {
		return err
	}
	return a.repo.SetPollingOverdueTime(ctx, id, value)
}

// UpdateTenantMetadata writes the selected fields of the current tenant in one statement.
func (a *Accessor) UpdateTenantMetadata(ctx context.Context, u pollinterval.TenantMetadataUpdate) error {
	id, err := FromContext(ctx)
	if err != nil {
		return err
	}
	return a.repo.SetTenantOverrides(ctx, id, u.PollingTime, u.PollingOverdueTime, u.SetPollingTime, u.SetPollingOverdueTime)
}

// DeleteTenantMetadata removes the current tenant's record.
func (a *Accessor) DeleteTenantMetadata(ctx context.Context) error {
	id, err := FromContext(ctx)
	if err != nil {
		return err
	}
	return a.repo.DeleteTenantMetadata(ctx, id)
}

package pollinterval

import "context"

// Properties holds the raw global poll settings exactly as configured.
// Values are kept as text: validation and fallback happen in the Resolver, never at load time.
type Properties struct {
	PollingTime        string
	PollingOverdueTime string
	MinPollingTime     string
	MaxPollingTime     string
}

// PropertiesSource supplies the global poll properties.
// It is only consulted on Reload, so implementations may perform I/O.
type PropertiesSource interface {
	PollProperties(ctx context.Context) (Properties, error)
}

// StaticSource is a PropertiesSource over fixed values (e.g. environment configuration).
type StaticSource Properties

// PollProperties returns the fixed values.
func (s StaticSource) PollProperties(context.Context) (Properties, error) {
	return Properties(s), nil
}

// TenantMetadata is the per-tenant override record.
// A nil field means the tenant has no override for that interval.
type TenantMetadata struct {
	PollingTime        *string
	PollingOverdueTime *string
}

// TenantMetadataUpdate is a partial write of the tenant record.
// Fields whose Set flag is false keep their stored value; a set nil value clears the override.
type TenantMetadataUpdate struct {
	PollingTime           *string
	SetPollingTime        bool
	PollingOverdueTime    *string
	SetPollingOverdueTime bool
}

// TenantAccessor reads and writes the metadata of the tenant bound to the context.
// TenantMetadata returns (nil, nil) when the tenant has no record yet.
type TenantAccessor interface {
	TenantMetadata(ctx context.Context) (*TenantMetadata, error)
	SetPollingTime(ctx context.Context, value *string) error
	SetPollingOverdueTime(ctx context.Context, value *string) error

	// UpdateTenantMetadata applies both fields of u in a single write.
	UpdateTenantMetadata(ctx context.Context, u TenantMetadataUpdate) error

	// DeleteTenantMetadata drops the record. Deleting a missing record is not an error.
	DeleteTenantMetadata(ctx context.Context) error
}

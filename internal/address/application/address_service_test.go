package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinashop/storefront/internal/address/domain"
)

// fakeAddressRepo 内存仓储，复刻默认地址的事务语义
type fakeAddressRepo struct {
	nextID    uint
	addresses map[uint]*domain.ShippingAddress
}

func newFakeAddressRepo() *fakeAddressRepo {
	return &fakeAddressRepo{addresses: make(map[uint]*domain.ShippingAddress)}
}

func (r *fakeAddressRepo) unsetDefaults(userID string, exceptID uint) {
	for _, a := range r.addresses {
		if a.UserID == userID && a.ID != exceptID {
			a.IsDefault = false
		}
	}
}

func (r *fakeAddressRepo) Create(_ context.Context, address *domain.ShippingAddress) error {
	r.nextID++
	address.ID = r.nextID
	if address.IsDefault {
		r.unsetDefaults(address.UserID, address.ID)
	}
	clone := *address
	r.addresses[address.ID] = &clone
	return nil
}

func (r *fakeAddressRepo) Update(_ context.Context, address *domain.ShippingAddress) error {
	if address.IsDefault {
		r.unsetDefaults(address.UserID, address.ID)
	}
	clone := *address
	r.addresses[address.ID] = &clone
	return nil
}

func (r *fakeAddressRepo) Delete(_ context.Context, userID string, addressID uint) error {
	if a, ok := r.addresses[addressID]; ok && a.UserID == userID {
		delete(r.addresses, addressID)
	}
	return nil
}

func (r *fakeAddressRepo) GetByID(_ context.Context, userID string, addressID uint) (*domain.ShippingAddress, error) {
	if a, ok := r.addresses[addressID]; ok && a.UserID == userID {
		clone := *a
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeAddressRepo) ListByUser(_ context.Context, userID string) ([]*domain.ShippingAddress, error) {
	var result []*domain.ShippingAddress
	for _, a := range r.addresses {
		if a.UserID == userID {
			clone := *a
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *fakeAddressRepo) SetDefault(_ context.Context, userID string, addressID uint) error {
	r.unsetDefaults(userID, addressID)
	if a, ok := r.addresses[addressID]; ok && a.UserID == userID {
		a.IsDefault = true
	}
	return nil
}

func sampleCommand(receiver string, isDefault bool) CreateAddressCommand {
	return CreateAddressCommand{
		Receiver:     receiver,
		Phone:        "0901234567",
		ProvinceCode: "79",
		ProvinceName: "Thành phố Hồ Chí Minh",
		DistrictCode: "760",
		DistrictName: "Quận 1",
		WardCode:     "26734",
		WardName:     "Phường Bến Nghé",
		Detail:       "12 Lê Lợi",
		IsDefault:    isDefault,
	}
}

func defaultCount(t *testing.T, svc *AddressService, userID string) int {
	t.Helper()
	addresses, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	count := 0
	for _, a := range addresses {
		if a.IsDefault {
			count++
		}
	}
	return count
}

func TestFirstAddressBecomesDefault(t *testing.T) {
	svc := NewAddressService(newFakeAddressRepo())

	created, err := svc.Create(context.Background(), "u1", sampleCommand("Nguyễn Văn A", false))
	require.NoError(t, err)
	assert.True(t, created.IsDefault, "first address becomes the default even when not requested")
}

func TestAtMostOneDefaultAddress(t *testing.T) {
	svc := NewAddressService(newFakeAddressRepo())
	ctx := context.Background()

	first, err := svc.Create(ctx, "u1", sampleCommand("Nguyễn Văn A", true))
	require.NoError(t, err)
	second, err := svc.Create(ctx, "u1", sampleCommand("Trần Thị B", true))
	require.NoError(t, err)

	assert.Equal(t, 1, defaultCount(t, svc, "u1"))

	require.NoError(t, svc.SetDefault(ctx, "u1", first.ID))
	assert.Equal(t, 1, defaultCount(t, svc, "u1"))

	def, err := svc.Default(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, first.ID, def.ID)
	_ = second
}

func TestUpdateJumpsDefault(t *testing.T) {
	svc := NewAddressService(newFakeAddressRepo())
	ctx := context.Background()

	first, err := svc.Create(ctx, "u1", sampleCommand("Nguyễn Văn A", true))
	require.NoError(t, err)
	second, err := svc.Create(ctx, "u1", sampleCommand("Trần Thị B", false))
	require.NoError(t, err)

	cmd := sampleCommand("Trần Thị B", true)
	_, err = svc.Update(ctx, "u1", second.ID, cmd)
	require.NoError(t, err)

	assert.Equal(t, 1, defaultCount(t, svc, "u1"))
	refreshed, err := svc.Get(ctx, "u1", first.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.IsDefault)
}

func TestUpdateMissingAddress(t *testing.T) {
	svc := NewAddressService(newFakeAddressRepo())
	_, err := svc.Update(context.Background(), "u1", 99, sampleCommand("X", false))
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestDefaultsAreScopedPerUser(t *testing.T) {
	svc := NewAddressService(newFakeAddressRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", sampleCommand("Nguyễn Văn A", true))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u2", sampleCommand("Trần Thị B", true))
	require.NoError(t, err)

	assert.Equal(t, 1, defaultCount(t, svc, "u1"))
	assert.Equal(t, 1, defaultCount(t, svc, "u2"))
}

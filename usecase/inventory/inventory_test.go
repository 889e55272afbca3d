package inventory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
	"github.com/fastygo/greenbite/repository/memory"
)

var owner = domain.Identity{ID: "u1", Email: "ana@example.org"}

func TestDashboardAfterAddingMilk(t *testing.T) {
	ctx := context.Background()
	uc := New(memory.NewStore(), nil, nil, nil, nil)
	now := time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)

	_, err := uc.Add(ctx, owner, domain.FoodItem{
		Name:       "Milk",
		Quantity:   1,
		ExpiryDate: now.AddDate(0, 0, 3).Format(domain.DateLayout),
	})
	require.NoError(t, err)

	d, err := uc.Dashboard(ctx, owner, now, "")
	require.NoError(t, err)
	assert.Equal(t, 1, d.TotalItems)
	assert.Equal(t, 1, d.ExpiringSoon)
	assert.Zero(t, d.Expired)
	assert.Zero(t, d.Fresh)
	require.Len(t, d.Alerts, 1)
	assert.Equal(t, "Milk is expiring in 3 days!", d.Alerts[0].Message)
	assert.Equal(t, AlertWarning, d.Alerts[0].Level)
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	items := []domain.FoodItem{
		{ID: "1", Name: "yogurt", Quantity: 2, ExpiryDate: "2024-02-01"},
		{ID: "2", Name: "Bread", Quantity: 1, ExpiryDate: "2024-01-05"},
		{ID: "3", Name: "apples", Quantity: 6, ExpiryDate: "2024-01-15"},
		{ID: "4", Name: "Cheese", Quantity: 1, ExpiryDate: "2024-01-10"},
	}

	d := Summarize(items, now, SortExpiryDate)
	assert.Equal(t, 4, d.TotalItems)
	assert.Equal(t, 2, d.ExpiringSoon)
	assert.Equal(t, 1, d.Expired)
	assert.Equal(t, 1, d.Fresh)
	assert.Equal(t, d.TotalItems, d.ExpiringSoon+d.Expired+d.Fresh)

	ids := func(d *Dashboard) []string {
		out := make([]string, len(d.Items))
		for i, it := range d.Items {
			out[i] = it.ID
		}
		return out
	}
	assert.Equal(t, []string{"2", "4", "3", "1"}, ids(d))
	assert.Contains(t, d.Alerts, Alert{ItemID: "2", Message: "Bread has expired!", Level: AlertError})
	assert.Contains(t, d.Alerts, Alert{ItemID: "4", Message: "Cheese is expiring in 0 days!", Level: AlertWarning})

	assert.Equal(t, []string{"3", "2", "4", "1"}, ids(Summarize(items, now, SortName)))
	assert.Equal(t, "3", Summarize(items, now, SortQuantity).Items[0].ID)
}

func TestAddValidates(t *testing.T) {
	uc := New(memory.NewStore(), nil, nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		item domain.FoodItem
	}{
		{"missing name", domain.FoodItem{Quantity: 1, ExpiryDate: "2024-01-01"}},
		{"zero quantity", domain.FoodItem{Name: "Eggs", ExpiryDate: "2024-01-01"}},
		{"missing date", domain.FoodItem{Name: "Eggs", Quantity: 12}},
		{"bad date", domain.FoodItem{Name: "Eggs", Quantity: 12, ExpiryDate: "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Add(ctx, owner, tt.item)
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid), "got %v", err)
		})
	}

	_, err := uc.Add(ctx, domain.Identity{}, domain.FoodItem{Name: "Eggs", Quantity: 1, ExpiryDate: "2024-01-01"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUpdateKeepsDonationStatus(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := New(store, nil, nil, nil, nil)

	item, err := uc.Add(ctx, owner, domain.FoodItem{Name: "Rice", Quantity: 2, ExpiryDate: "2024/03/01"})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", item.ExpiryDate)
	require.NoError(t, store.Patch(ctx, domain.FoodItemPath(owner.ID, item.ID), map[string]interface{}{"status": domain.ItemStatusInProgress}))

	updated, err := uc.Update(ctx, owner, item.ID, domain.FoodItem{Name: "Brown rice", Quantity: 3, ExpiryDate: "2024-03-02"})
	require.NoError(t, err)
	assert.Equal(t, "Brown rice", updated.Name)
	assert.Equal(t, domain.ItemStatusInProgress, updated.Status)

	_, err = uc.Update(ctx, owner, "missing", domain.FoodItem{Name: "x", Quantity: 1, ExpiryDate: "2024-03-02"})
	assert.ErrorIs(t, err, domain.ErrFoodItemNotFound)
}

func TestToggleAlertAndDelete(t *testing.T) {
	ctx := context.Background()
	uc := New(memory.NewStore(), nil, nil, nil, nil)

	item, err := uc.Add(ctx, owner, domain.FoodItem{Name: "Tofu", Quantity: 1, ExpiryDate: "2024-03-01"})
	require.NoError(t, err)

	toggled, err := uc.ToggleAlert(ctx, owner, item.ID)
	require.NoError(t, err)
	assert.True(t, toggled.AlertEnabled)

	stored, err := uc.Get(ctx, owner, item.ID)
	require.NoError(t, err)
	assert.True(t, stored.AlertEnabled)

	require.NoError(t, uc.Delete(ctx, owner, item.ID))
	assert.ErrorIs(t, uc.Delete(ctx, owner, item.ID), domain.ErrFoodItemNotFound)

	items, err := uc.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, items)
}

type unavailableDirectory struct {
	repository.Directory
}

func (unavailableDirectory) Set(ctx context.Context, path string, value interface{}) error {
	return domain.Unavailable("write document", errors.New("connection reset"))
}

type recordingBuffer struct {
	ops []string
}

func (b *recordingBuffer) BufferProfile(ctx context.Context, userID string, fields map[string]interface{}) error {
	b.ops = append(b.ops, "profile")
	return nil
}

func (b *recordingBuffer) BufferFoodItem(ctx context.Context, operation, userID string, item *domain.FoodItem) error {
	b.ops = append(b.ops, operation+":"+item.Name)
	return nil
}

func TestAddBuffersWhenStoreUnavailable(t *testing.T) {
	buf := &recordingBuffer{}
	uc := New(unavailableDirectory{}, buf, nil, nil, nil)

	item, err := uc.Add(context.Background(), owner, domain.FoodItem{Name: "Beans", Quantity: 4, ExpiryDate: "2024-05-01"})
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, []string{"set:Beans"}, buf.ops)
}

type fakeImages struct {
	name string
}

func (f *fakeImages) UploadImage(ctx context.Context, name string, r io.Reader) (string, error) {
	f.name = name
	return "https://img.example.org/" + name, nil
}

func TestAttachImage(t *testing.T) {
	ctx := context.Background()
	images := &fakeImages{}
	uc := New(memory.NewStore(), nil, images, nil, nil)

	item, err := uc.Add(ctx, owner, domain.FoodItem{Name: "Kale", Quantity: 1, ExpiryDate: "2024-05-01"})
	require.NoError(t, err)

	updated, err := uc.AttachImage(ctx, owner, item.ID, "kale.jpg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(updated.ImageURL, "kale.jpg"))

	stored, err := uc.Get(ctx, owner, item.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.ImageURL, stored.ImageURL)

	_, err = New(memory.NewStore(), nil, nil, nil, nil).AttachImage(ctx, owner, item.ID, "kale.jpg", strings.NewReader("jpeg"))
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))
}

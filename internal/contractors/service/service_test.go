package service

import (
	"context"
	"io"
	"testing"

	"renolead_backend/internal/contractors/repository"
	"renolead_backend/internal/contractors/transport"
	"renolead_backend/platform/apperr"
	"renolead_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	byID        map[uuid.UUID]repository.Contractor
	lastList    repository.ListParams
	lastUpdate  repository.ContractorUpdate
	replaced    []string
	eligibleZip string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[uuid.UUID]repository.Contractor{}}
}

func (f *fakeRepo) Create(_ context.Context, c repository.Contractor) (repository.Contractor, error) {
	f.byID[c.ID] = c
	return c, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Contractor, error) {
	c, ok := f.byID[id]
	if !ok {
		return repository.Contractor{}, apperr.NotFound("contractor not found")
	}
	return c, nil
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (repository.Contractor, error) {
	for _, c := range f.byID {
		if c.Email == email {
			return c, nil
		}
	}
	return repository.Contractor{}, apperr.NotFound("contractor not found")
}

func (f *fakeRepo) GetByIDs(context.Context, []uuid.UUID) ([]repository.Contractor, error) {
	return nil, nil
}

func (f *fakeRepo) FindEligible(_ context.Context, zip string, _ int) ([]repository.Contractor, error) {
	f.eligibleZip = zip
	return nil, nil
}

func (f *fakeRepo) List(_ context.Context, params repository.ListParams) ([]repository.Contractor, int, error) {
	f.lastList = params
	return []repository.Contractor{{ID: uuid.New(), Name: "Keystone"}}, 41, nil
}

func (f *fakeRepo) Update(_ context.Context, u repository.ContractorUpdate) (repository.Contractor, error) {
	f.lastUpdate = u
	return f.GetByID(context.Background(), u.ID)
}

func (f *fakeRepo) ReplaceZipCodes(_ context.Context, id uuid.UUID, zips []string) error {
	f.replaced = zips
	c := f.byID[id]
	c.ZipCodes = zips
	f.byID[id] = c
	return nil
}

func (f *fakeRepo) IncrementLeadsReceived(context.Context, []uuid.UUID) error { return nil }

func (f *fakeRepo) RecordConversion(context.Context, uuid.UUID) error { return nil }

func newService(repo *fakeRepo) *Service {
	return New(repo, nil, logger.NewWithWriter("test", io.Discard))
}

func TestCreateNormalizesInput(t *testing.T) {
	repo := newFakeRepo()
	phone := "(508) 555-0142"

	resp, err := newService(repo).Create(context.Background(), transport.CreateContractorRequest{
		Name:     "  <b>Keystone</b>   Renovations ",
		Email:    " Jobs@Keystone.TEST ",
		Phone:    &phone,
		ZipCodes: []string{"01776", " 01742", "01776", ""},
	})
	require.NoError(t, err)

	assert.Equal(t, "Keystone Renovations", resp.Name)
	assert.Equal(t, "jobs@keystone.test", resp.Email)
	require.NotNil(t, resp.Phone)
	assert.Equal(t, "+15085550142", *resp.Phone)
	assert.Equal(t, []string{"01742", "01776"}, resp.ZipCodes)
	assert.Equal(t, "basic", resp.SubscriptionTier)
	assert.True(t, resp.IsActiveSubscriber)
}

func TestCreateInactiveSubscriber(t *testing.T) {
	inactive := false
	resp, err := newService(newFakeRepo()).Create(context.Background(), transport.CreateContractorRequest{
		Name:               "Paused Co",
		Email:              "paused@example.com",
		SubscriptionTier:   "premium",
		IsActiveSubscriber: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, resp.IsActiveSubscriber)
	assert.Equal(t, "premium", resp.SubscriptionTier)
	assert.Equal(t, []string{}, resp.ZipCodes)
}

func TestUpdateRejectsBlankName(t *testing.T) {
	repo := newFakeRepo()
	id := uuid.New()
	repo.byID[id] = repository.Contractor{ID: id, Name: "Keystone"}

	blank := "<p> </p>"
	_, err := newService(repo).Update(context.Background(), id, transport.UpdateContractorRequest{Name: &blank})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUpdateLowercasesEmail(t *testing.T) {
	repo := newFakeRepo()
	id := uuid.New()
	repo.byID[id] = repository.Contractor{ID: id, Name: "Keystone"}

	email := "NEW@Keystone.test"
	_, err := newService(repo).Update(context.Background(), id, transport.UpdateContractorRequest{Email: &email})
	require.NoError(t, err)
	require.NotNil(t, repo.lastUpdate.Email)
	assert.Equal(t, "new@keystone.test", *repo.lastUpdate.Email)
	assert.Nil(t, repo.lastUpdate.Name)
}

func TestListPaging(t *testing.T) {
	repo := newFakeRepo()

	resp, err := newService(repo).List(context.Background(), transport.ListContractorsRequest{Page: 3, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, resp.PageSize)
	assert.Equal(t, 200, repo.lastList.Offset)
	assert.Equal(t, 1, resp.TotalPages)

	resp, err = newService(repo).List(context.Background(), transport.ListContractorsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, defaultPageSize, resp.PageSize)
	assert.Equal(t, 3, resp.TotalPages)
}

func TestReplaceZipCodes(t *testing.T) {
	repo := newFakeRepo()
	id := uuid.New()
	repo.byID[id] = repository.Contractor{ID: id, ZipCodes: []string{"01701"}}

	resp, err := newService(repo).ReplaceZipCodes(context.Background(), id, transport.ReplaceZipCodesRequest{ZipCodes: []string{"01776 ", "01742"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"01742", "01776"}, resp.ZipCodes)

	_, err = newService(repo).ReplaceZipCodes(context.Background(), uuid.New(), transport.ReplaceZipCodesRequest{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestFindEligibleSkipsBlankZip(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	got, err := svc.FindEligible(context.Background(), "  ", 3)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, repo.eligibleZip)

	_, err = svc.FindEligible(context.Background(), " 01776 ", 3)
	require.NoError(t, err)
	assert.Equal(t, "01776", repo.eligibleZip)
}

func TestNormalizeZipCodes(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"dedupes and sorts", []string{"02139", "01776", "02139"}, []string{"01776", "02139"}},
		{"uppercases postal codes", []string{"k1a 0b1"}, []string{"K1A 0B1"}},
		{"drops blanks", []string{" ", ""}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeZipCodes(tt.in))
		})
	}
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"renolead_backend/internal/events"
	"renolead_backend/internal/leads/assignment"
	"renolead_backend/internal/leads/domain"
	"renolead_backend/internal/leads/management"
	"renolead_backend/internal/leads/ports"
	"renolead_backend/internal/leads/repository"
	"renolead_backend/internal/leads/scoring"
	"renolead_backend/internal/leads/status"
	"renolead_backend/platform/apperr"
	"renolead_backend/platform/httpkit"
	"renolead_backend/platform/logger"
	"renolead_backend/platform/phone"
	"renolead_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepo is an in-memory stand-in for the Postgres repository.
type memoryRepo struct {
	leads map[uuid.UUID]domain.Lead
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	l, ok := r.leads[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return l, nil
}

func (r *memoryRepo) List(context.Context, repository.ListParams) ([]domain.Lead, int, error) {
	out := make([]domain.Lead, 0, len(r.leads))
	for _, l := range r.leads {
		out = append(out, l)
	}
	return out, len(out), nil
}

func (r *memoryRepo) ListOpenIDs(context.Context) ([]uuid.UUID, error) { return nil, nil }

func (r *memoryRepo) ListTopByScore(context.Context, int) ([]domain.Lead, error) { return nil, nil }

func (r *memoryRepo) Create(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	r.leads[lead.ID] = lead
	return lead, nil
}

func (r *memoryRepo) IncrementRenderCount(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	l, ok := r.leads[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	l.RenderCount++
	r.leads[id] = l
	return l, nil
}

func (r *memoryRepo) UpdateScores(_ context.Context, id uuid.UUID, s domain.Scores) error {
	l := r.leads[id]
	l.Scores = s
	r.leads[id] = l
	return nil
}

func (r *memoryRepo) MarkAssigned(_ context.Context, id, contractorID uuid.UUID, sentAt time.Time) error {
	l := r.leads[id]
	l.Status = domain.StatusAssigned
	l.AssignedContractorID = &contractorID
	l.SentAt = &sentAt
	r.leads[id] = l
	return nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, p repository.StatusUpdateParams) (domain.Lead, error) {
	l := r.leads[p.LeadID]
	l.Status = p.Status
	l.LastContactedAt = p.LastContactedAt
	r.leads[p.LeadID] = l
	return l, nil
}

func (r *memoryRepo) CreateAssignment(_ context.Context, p repository.CreateAssignmentParams) (domain.Assignment, error) {
	return domain.Assignment{ID: uuid.New(), LeadID: p.LeadID, ContractorID: p.ContractorID, Method: p.Method}, nil
}

func (r *memoryRepo) MarkAssignmentEmailSent(context.Context, uuid.UUID) error { return nil }

func (r *memoryRepo) RecordContractorResponse(context.Context, uuid.UUID, uuid.UUID, *int) error {
	return nil
}

func (r *memoryRepo) GetProfileByID(context.Context, uuid.UUID) (domain.Profile, error) {
	return domain.Profile{}, repository.ErrProfileNotFound
}

func (r *memoryRepo) GetProfileByEmail(context.Context, string) (domain.Profile, error) {
	return domain.Profile{}, repository.ErrProfileNotFound
}

type stubContractors struct {
	byID map[uuid.UUID]ports.Contractor
}

func (s *stubContractors) GetContractorsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]ports.Contractor, error) {
	out := map[uuid.UUID]ports.Contractor{}
	for _, id := range ids {
		if c, ok := s.byID[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (s *stubContractors) GetContractorByEmail(_ context.Context, email string) (ports.Contractor, error) {
	for _, c := range s.byID {
		if c.Email == email {
			return c, nil
		}
	}
	return ports.Contractor{}, apperr.NotFound("contractor not found")
}

func (s *stubContractors) FindEligibleContractors(context.Context, string, int) ([]ports.Contractor, error) {
	return nil, nil
}

func (s *stubContractors) RecordLeadsReceived(context.Context, []uuid.UUID) error { return nil }

func (s *stubContractors) RecordConversion(context.Context, uuid.UUID) error { return nil }

type okNotifier struct{}

func (okNotifier) NotifyLeadAssigned(context.Context, ports.Contractor, domain.Lead, uuid.UUID) error {
	return nil
}

type testEnv struct {
	engine     *gin.Engine
	repo       *memoryRepo
	contractor ports.Contractor
	lead       domain.Lead
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	contractor := ports.Contractor{ID: uuid.New(), Name: "Keystone Renovations", Email: "jobs@keystone.test", IsActive: true}
	lead := domain.Lead{ID: uuid.New(), ZipCode: "01776", RoomType: domain.RoomKitchen, RenderCount: 2, Status: domain.StatusNew, CreatedAt: time.Now().Add(-time.Hour)}
	repo := &memoryRepo{leads: map[uuid.UUID]domain.Lead{lead.ID: lead}}
	dir := &stubContractors{byID: map[uuid.UUID]ports.Contractor{contractor.ID: contractor}}

	log := logger.NewWithWriter("test", io.Discard)
	bus := events.NewInMemoryBus(log)
	val := validator.New()
	require.NoError(t, val.RegisterStringRule("leadstatus", knownStatus))
	require.NoError(t, val.RegisterStringRule("roomtype", knownRoomType))

	scorer := scoring.New(repo, scoring.NewCalculator(nil, nil), bus, log)
	assignSvc := assignment.New(repo, dir, dir, okNotifier{}, scorer, bus, log, assignment.Options{})
	statusSvc := status.New(repo, dir, dir, scorer, bus, log, nil)
	mgmt := management.New(repo, scorer, dir, phone.NewNormalizer("US"), bus, log)

	engine := gin.New()
	public := engine.Group("/public")
	public.Use(fakeAuth())
	NewPublicHandler(mgmt, val).RegisterRoutes(public.Group("/leads"))

	protected := engine.Group("")
	protected.Use(fakeAuth())
	New(mgmt, assignSvc, statusSvc, scorer, val).RegisterRoutes(protected.Group("/leads"))

	return &testEnv{engine: engine, repo: repo, contractor: contractor, lead: lead}
}

func knownStatus(s string) bool {
	_, ok := domain.ParseStatus(s)
	return ok
}

func knownRoomType(s string) bool {
	_, ok := domain.ParseRoomType(s)
	return ok
}

// fakeAuth reads the caller from test headers instead of a JWT.
func fakeAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetHeader("X-Test-Role")
		if role == "" {
			c.Next()
			return
		}
		userID := uuid.New()
		if raw := c.GetHeader("X-Test-User"); raw != "" {
			userID = uuid.MustParse(raw)
		}
		c.Set(httpkit.ContextUserIDKey, userID)
		c.Set(httpkit.ContextRolesKey, []string{role})
		c.Set(httpkit.ContextEmailKey, c.GetHeader("X-Test-Email"))
		c.Next()
	}
}

func (e *testEnv) do(t *testing.T, method, path, role, email string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-Test-Role", role)
		req.Header.Set("X-Test-Email", email)
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func TestPublicCreateLead(t *testing.T) {
	env := setup(t)

	rec := env.do(t, http.MethodPost, "/public/leads", "", "", map[string]interface{}{
		"zipCode":    "01742",
		"roomType":   "bathroom",
		"style":      "Farmhouse",
		"email":      "Homeowner@Example.com",
		"wantsQuote": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID          uuid.UUID `json:"id"`
		RenderCount int       `json:"renderCount"`
		Status      string    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.RenderCount)
	assert.Equal(t, "new", resp.Status)

	stored := env.repo.leads[resp.ID]
	assert.Equal(t, "homeowner@example.com", *stored.Email)
	assert.NotZero(t, stored.Scores.Intent)
}

func TestPublicCreateLeadIgnoresBodyUserID(t *testing.T) {
	env := setup(t)

	rec := env.do(t, http.MethodPost, "/public/leads", "", "", map[string]interface{}{
		"zipCode": "01742",
		"userId":  uuid.NewString(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, env.repo.leads[resp.ID].UserID)
}

func TestPublicCreateLeadLinksSignedInHomeowner(t *testing.T) {
	env := setup(t)
	owner := uuid.New()

	body, err := json.Marshal(map[string]interface{}{"zipCode": "01742", "userId": uuid.NewString()})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/public/leads", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Role", "homeowner")
	req.Header.Set("X-Test-User", owner.String())
	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	stored := env.repo.leads[resp.ID]
	require.NotNil(t, stored.UserID)
	assert.Equal(t, owner, *stored.UserID)
}

func TestPublicCreateLeadValidation(t *testing.T) {
	env := setup(t)

	rec := env.do(t, http.MethodPost, "/public/leads", "", "", map[string]interface{}{"roomType": "garage"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error   string                 `json:"error"`
		Details []validator.FieldError `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, msgValidationFailed, resp.Error)
	fields := map[string]string{}
	for _, d := range resp.Details {
		fields[d.Field] = d.Rule
	}
	assert.Equal(t, "required", fields["zipCode"])
	assert.Equal(t, "roomtype", fields["roomType"])
}

func TestRecordRender(t *testing.T) {
	env := setup(t)

	rec := env.do(t, http.MethodPost, "/public/leads/"+env.lead.ID.String()+"/renders", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, env.repo.leads[env.lead.ID].RenderCount)

	rec = env.do(t, http.MethodPost, "/public/leads/"+uuid.NewString()+"/renders", "", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProtectedRoutesRequireIdentity(t *testing.T) {
	env := setup(t)
	rec := env.do(t, http.MethodGet, "/leads/"+env.lead.ID.String(), "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAssignRequiresAdmin(t *testing.T) {
	env := setup(t)
	body := map[string]interface{}{"contractorIds": []uuid.UUID{env.contractor.ID}}

	rec := env.do(t, http.MethodPost, "/leads/"+env.lead.ID.String()+"/assign", "contractor", env.contractor.Email, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/leads/"+env.lead.ID.String()+"/assign", "admin", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result assignment.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, domain.StatusAssigned, env.repo.leads[env.lead.ID].Status)
}

func TestAssignEmptyListRejected(t *testing.T) {
	env := setup(t)
	rec := env.do(t, http.MethodPost, "/leads/"+env.lead.ID.String()+"/assign", "admin", "", map[string]interface{}{"contractorIds": []uuid.UUID{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatus(t *testing.T) {
	env := setup(t)
	path := "/leads/" + env.lead.ID.String() + "/status"

	rec := env.do(t, http.MethodPatch, path, "admin", "", map[string]string{"status": "won"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, path, "contractor", env.contractor.Email, map[string]string{"status": "contacted"})
	assert.Equal(t, http.StatusForbidden, rec.Code, "lead is not assigned to this contractor yet")
	assert.Equal(t, domain.StatusNew, env.repo.leads[env.lead.ID].Status)

	rec = env.do(t, http.MethodPatch, path, "homeowner", "owner@example.com", map[string]string{"status": "dead"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPatch, path, "admin", "", map[string]string{"status": "contacted"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.StatusContacted, env.repo.leads[env.lead.ID].Status)
	assert.NotNil(t, env.repo.leads[env.lead.ID].LastContactedAt)
}

func TestGetScores(t *testing.T) {
	env := setup(t)

	rec := env.do(t, http.MethodGet, "/leads/"+env.lead.ID.String()+"/scores", "admin", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var scores map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scores))
	for _, key := range []string{"engagement", "intent", "quality", "probabilityToClose", "overall", "priority"} {
		assert.Contains(t, scores, key)
	}

	rec = env.do(t, http.MethodGet, "/leads/not-a-uuid/scores", "admin", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

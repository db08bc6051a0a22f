package sse

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"renolead_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stream(t *testing.T, svc *Service, sub Subscriber) (*httptest.ResponseRecorder, context.CancelFunc, <-chan struct{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)

	before := svc.ClientCount()
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Handler(func(*gin.Context) (Subscriber, bool) { return sub, true })(c)
	}()
	require.Eventually(t, func() bool { return svc.ClientCount() == before+1 }, time.Second, 5*time.Millisecond)
	return rec, cancel, done
}

func TestContractorOnlyReceivesOwnLeads(t *testing.T) {
	svc := New(logger.NewWithWriter("test", io.Discard))
	mine, other := uuid.New(), uuid.New()
	leadA, leadB := uuid.New(), uuid.New()

	adminRec, stopAdmin, adminDone := stream(t, svc, Subscriber{UserID: uuid.New(), Admin: true})
	contractorRec, stopContractor, contractorDone := stream(t, svc, Subscriber{UserID: uuid.New(), ContractorID: &mine})

	svc.PublishToContractors([]uuid.UUID{mine}, Event{Type: EventLeadAssigned, LeadID: leadA})
	svc.PublishToContractors([]uuid.UUID{other}, Event{Type: EventLeadAssigned, LeadID: leadB})
	svc.PublishToAdmins(Event{Type: EventFeedbackSubmitted})

	time.Sleep(50 * time.Millisecond)
	stopAdmin()
	stopContractor()
	<-adminDone
	<-contractorDone

	assert.Contains(t, contractorRec.Body.String(), leadA.String())
	assert.NotContains(t, contractorRec.Body.String(), leadB.String())
	assert.NotContains(t, contractorRec.Body.String(), string(EventFeedbackSubmitted))

	adminBody := adminRec.Body.String()
	assert.Contains(t, adminBody, leadA.String())
	assert.Contains(t, adminBody, leadB.String())
	assert.Contains(t, adminBody, "event:"+string(EventFeedbackSubmitted))
	assert.Equal(t, 0, svc.ClientCount())
}

func TestCloseDisconnectsClients(t *testing.T) {
	svc := New(logger.NewWithWriter("test", io.Discard))
	_, cancel, done := stream(t, svc, Subscriber{UserID: uuid.New(), Admin: true})
	defer cancel()

	svc.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after Close")
	}
	assert.Equal(t, 0, svc.ClientCount())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/events", nil)
	svc.Handler(func(*gin.Context) (Subscriber, bool) { return Subscriber{Admin: true}, true })(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

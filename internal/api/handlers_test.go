package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/server/internal/auth"
	"prospector/server/internal/database"
	"prospector/server/internal/models"
	"prospector/server/internal/queue"
)

type stubValidator struct{}

func (s *stubValidator) ValidateToken(token string) (*auth.Claims, error) {
	return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user_123"}}, nil
}

type testEnv struct {
	db     *database.Database
	queue  *queue.IngestQueue
	router *gin.Engine
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	db, err := database.NewDatabase(":memory:", logger)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	ingest := queue.NewIngestQueue(4, logger)
	handler := NewHandler(db, ingest, logger, 50)

	router := gin.New()
	SetupRoutes(router, handler, &stubValidator{}, logger)
	return &testEnv{db: db, queue: ingest, router: router}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer token")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedAction(t *testing.T, priority int, scheduled time.Time) (*models.PropertyOwner, *models.Property, *models.ActionItem) {
	t.Helper()

	score := 85
	owner, err := e.db.CreateOwner(&models.PropertyOwner{
		FirstName: "Sarah",
		LastName:  "Johnson",
		Phone:     &models.ContactPhone{Mobile: "0412 345 678"},
		ProspectSegment: &models.ProspectSegment{
			Category: models.SegmentHotProspect,
			Score:    &score,
		},
	})
	require.NoError(t, err)

	prop, err := e.db.CreateProperty(&models.Property{
		Address:      models.Address{Street: "15 Woodland Drive", Suburb: "Merrimac", State: "QLD", Postcode: "4226"},
		PropertyType: models.PropertyTypeHouse,
		Coordinates:  &models.Coordinates{Lat: -28.0453, Lng: 153.3644},
	})
	require.NoError(t, err)

	action, err := e.db.CreateActionItem(&models.ActionItem{
		PropertyOwnerID: owner.ID,
		PropertyID:      prop.ID,
		ActionType:      "First Contact",
		Priority:        priority,
		ScheduledDate:   scheduled,
		Title:           "Initial Contact",
	})
	require.NoError(t, err)
	return owner, prop, action
}

func TestHealthIsUnauthenticated(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDashboardRequiresSession(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "unauthorized")
}

func TestGetDashboard(t *testing.T) {
	env := setupTestEnv(t)
	env.seedAction(t, 8, time.Now())

	w := env.request(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var dash models.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dash))

	assert.Equal(t, "user_123", dash.UserID)
	assert.False(t, dash.LastUpdated.IsZero())
	assert.Equal(t, 1, dash.Metrics.TotalProperties)
	assert.Equal(t, 1, dash.Metrics.TotalOwners)
	assert.Equal(t, 50, dash.Metrics.WeeklyGoal)
	require.Len(t, dash.TodayActions, 1)
	assert.Equal(t, "Sarah Johnson", dash.TodayActions[0].PropertyOwner.FullName)
	require.Len(t, dash.Segments, 1)
	assert.Equal(t, "Hot Prospects", dash.Segments[0].Name)
	assert.NotEmpty(t, dash.RecentActivity)
}

func TestCompleteActionFlow(t *testing.T) {
	env := setupTestEnv(t)
	_, _, action := env.seedAction(t, 8, time.Now())

	w := env.request(t, http.MethodPost, "/api/actions/"+action.ID+"/complete",
		map[string]string{"outcome": "Connected"})
	require.Equal(t, http.StatusOK, w.Code)

	var completed models.ActionItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &completed))
	assert.Equal(t, models.StatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
	require.NotNil(t, completed.Result)
	assert.Equal(t, "Connected", completed.Result.Outcome)

	// Completing again conflicts.
	w = env.request(t, http.MethodPost, "/api/actions/"+action.ID+"/complete", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "conflict")
}

func TestCompleteActionNotFound(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/actions/missing/complete", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestCompleteActionMethodNotAllowed(t *testing.T) {
	env := setupTestEnv(t)
	_, _, action := env.seedAction(t, 8, time.Now())

	w := env.request(t, http.MethodGet, "/api/actions/"+action.ID+"/complete", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestSkipAndReopenAction(t *testing.T) {
	env := setupTestEnv(t)
	_, _, action := env.seedAction(t, 5, time.Now())

	w := env.request(t, http.MethodPost, "/api/actions/"+action.ID+"/skip", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var item models.ActionItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.Equal(t, models.StatusSkipped, item.Status)
	assert.Nil(t, item.CompletedAt)

	w = env.request(t, http.MethodPost, "/api/actions/"+action.ID+"/reopen", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.Equal(t, models.StatusPending, item.Status)
}

func TestRescheduleAction(t *testing.T) {
	env := setupTestEnv(t)
	_, _, action := env.seedAction(t, 5, time.Now())

	newDate := time.Now().UTC().Add(48 * time.Hour)
	w := env.request(t, http.MethodPost, "/api/actions/"+action.ID+"/reschedule",
		map[string]interface{}{"scheduledDate": newDate})
	require.Equal(t, http.StatusOK, w.Code)

	var item models.ActionItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.Equal(t, models.StatusPending, item.Status)
	assert.WithinDuration(t, newDate, item.ScheduledDate, time.Second)

	// Missing date is a bad request.
	w = env.request(t, http.MethodPost, "/api/actions/"+action.ID+"/reschedule", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateActionValidation(t *testing.T) {
	env := setupTestEnv(t)
	owner, prop, _ := env.seedAction(t, 5, time.Now())

	// Invalid action type surfaces the validation taxonomy.
	w := env.request(t, http.MethodPost, "/api/actions", map[string]interface{}{
		"propertyOwner": owner.ID,
		"property":      prop.ID,
		"actionType":    "Skywriting",
		"title":         "Test",
		"scheduledDate": time.Now().UTC(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_failed")
}

func TestCreateActionDoNotContact(t *testing.T) {
	env := setupTestEnv(t)
	owner, prop, _ := env.seedAction(t, 5, time.Now())

	flag := true
	_, err := env.db.UpdateOwner(owner.ID, database.OwnerPatch{DoNotContact: &flag})
	require.NoError(t, err)

	w := env.request(t, http.MethodPost, "/api/actions", map[string]interface{}{
		"propertyOwner": owner.ID,
		"property":      prop.ID,
		"actionType":    "First Contact",
		"title":         "Test",
		"scheduledDate": time.Now().UTC(),
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "do_not_contact")
}

func TestPropertyCRUD(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/properties", map[string]interface{}{
		"address": map[string]string{
			"street": "15 Woodland Drive", "suburb": "Merrimac", "state": "QLD", "postcode": "4226",
		},
		"propertyType": "House",
		"coordinates":  map[string]float64{"lat": -28.0453, "lng": 153.3644},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Property
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "15 Woodland Drive, Merrimac QLD 4226", created.Address.FullAddress)

	w = env.request(t, http.MethodGet, "/api/properties/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodPatch, "/api/properties/"+created.ID,
		map[string]string{"suburb": "Robina"})
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.Property
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "15 Woodland Drive, Robina QLD 4226", updated.Address.FullAddress)

	w = env.request(t, http.MethodGet, "/api/properties/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIngestProperties(t *testing.T) {
	env := setupTestEnv(t)

	batch := []map[string]interface{}{{
		"address": map[string]string{
			"street": "45 Emerald Drive", "suburb": "Merrimac", "state": "QLD", "postcode": "4226",
		},
		"propertyType": "House",
		"coordinates":  map[string]float64{"lat": -28.05, "lng": 153.37},
	}}

	w := env.request(t, http.MethodPost, "/api/properties/ingest", batch)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "queued")
	assert.Equal(t, 1, env.queue.Len())

	w = env.request(t, http.MethodPost, "/api/properties/ingest", []map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOwnerEndpoints(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/owners", map[string]interface{}{
		"firstName": "Michael",
		"lastName":  "Chen",
		"phone":     map[string]interface{}{"mobile": "0423 567 890"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var owner models.PropertyOwner
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &owner))
	assert.Equal(t, "Michael Chen", owner.FullName)

	w = env.request(t, http.MethodPost, "/api/owners/"+owner.ID+"/interactions",
		map[string]string{"type": "Call", "outcome": "Connected"})
	require.Equal(t, http.StatusCreated, w.Code)

	var updated models.PropertyOwner
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.Len(t, updated.Interactions, 1)
	assert.Equal(t, "Connected", updated.Interactions[0].Outcome)

	w = env.request(t, http.MethodGet, "/api/owners", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStartOfWeek(t *testing.T) {
	// Wednesday 2026-08-26 -> Monday 2026-08-24.
	wed := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), startOfWeek(wed))

	// Sunday belongs to the week starting the previous Monday.
	sun := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), startOfWeek(sun))

	// Monday is its own week start.
	mon := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, mon, startOfWeek(mon))
}

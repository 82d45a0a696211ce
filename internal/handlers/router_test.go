package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosync/backend/internal/services"
)

const testSecret = "test-secret"

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

type testAPI struct {
	t      *testing.T
	router http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := services.NewMemoryStore()
	users := services.NewMemoryUserService(store)
	items := services.NewMemoryItemService(store, users)
	imageStore, err := services.NewLocalImageStore(t.TempDir())
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		JWTSecret:       testSecret,
		JWTExpiration:   time.Hour,
		MaxUploadSizeMB: 1,
		Users:           users,
		Items:           items,
		Requests:        services.NewMemoryRequestService(store, users),
		Transactions:    services.NewMemoryTransactionService(store, users, items),
		Images:          services.NewImageService(imageStore, nil),
	})
	return &testAPI{t: t, router: router}
}

func (a *testAPI) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(a.t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

type authData struct {
	Token string `json:"token"`
	User  struct {
		ID        string `json:"id"`
		EcoPoints int    `json:"ecoPoints"`
		Level     string `json:"level"`
	} `json:"user"`
}

func (a *testAPI) register(name, email string) (string, string) {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"name":     name,
		"email":    email,
		"password": "secret123",
	})
	require.Equal(a.t, http.StatusCreated, code)
	var auth authData
	decodeData(a.t, env, &auth)
	return auth.Token, auth.User.ID
}

func (a *testAPI) createItem(token string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/items", token, map[string]interface{}{
		"title":       "Ladder",
		"description": "Aluminium, 3m",
		"category":    "tools",
		"type":        "lend",
		"coordinates": []float64{40.7580, -73.9855},
	})
	require.Equal(a.t, http.StatusCreated, code)
	var item struct {
		ID string `json:"id"`
	}
	decodeData(a.t, env, &item)
	return item.ID
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)
	token, userID := api.register("Ana", "ana@example.com")
	assert.NotEmpty(t, token)

	code, _ := api.do(http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"name": "Ana", "email": "ANA@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, env := api.do(http.MethodPost, "/api/auth/register", "", map[string]interface{}{"name": "Ana"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Errors, "email")
	assert.Contains(t, env.Errors, "password")

	code, env = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, code)
	var auth authData
	decodeData(t, env, &auth)
	assert.Equal(t, userID, auth.User.ID)

	code, _ = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = api.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(env.Data), "password")

	code, _ = api.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = api.do(http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = api.do(http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
}

func TestItemRoutes(t *testing.T) {
	api := newTestAPI(t)
	owner, _ := api.register("Owner", "owner@example.com")
	other, _ := api.register("Other", "other@example.com")

	code, _ := api.do(http.MethodPost, "/api/items", "", map[string]interface{}{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, code)

	id := api.createItem(owner)

	code, env := api.do(http.MethodGet, "/api/items/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)
	var item struct {
		Owner struct {
			Name      string `json:"name"`
			EcoPoints *int   `json:"ecoPoints"`
		} `json:"owner"`
		Location struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"location"`
	}
	decodeData(t, env, &item)
	assert.Equal(t, "Owner", item.Owner.Name)
	assert.NotNil(t, item.Owner.EcoPoints)
	assert.Equal(t, []float64{-73.9855, 40.7580}, item.Location.Coordinates)

	code, _ = api.do(http.MethodPatch, "/api/items/"+id, other, map[string]string{"title": "Mine now"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(http.MethodPatch, "/api/items/"+id, owner, map[string]string{"owner": "someone-else"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(http.MethodPatch, "/api/items/"+id, owner, map[string]string{"title": "Step ladder"})
	assert.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodGet, "/api/items/nearby?lng=-73.9855&lat=40.7581", "", nil)
	require.Equal(t, http.StatusOK, code)
	var nearby []map[string]interface{}
	decodeData(t, env, &nearby)
	require.Len(t, nearby, 1)
	assert.Equal(t, "Step ladder", nearby[0]["title"])

	code, env = api.do(http.MethodGet, "/api/items/nearby?lat=40", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Errors, "coordinates")

	code, env = api.do(http.MethodGet, "/api/items/nearby?lng=-73.9855&lat=40.7581&category=kitchen", "", nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, env, &nearby)
	assert.Empty(t, nearby)

	code, _ = api.do(http.MethodDelete, "/api/items/"+id, other, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = api.do(http.MethodDelete, "/api/items/"+id, owner, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodGet, "/api/items/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
}

func TestRequestRoutes(t *testing.T) {
	api := newTestAPI(t)
	owner, _ := api.register("Owner", "owner@example.com")
	other, _ := api.register("Other", "other@example.com")

	code, env := api.do(http.MethodPost, "/api/requests", owner, map[string]interface{}{
		"itemName":    "Tent",
		"urgency":     "high",
		"coordinates": []float64{40.7580, -73.9855},
	})
	require.Equal(t, http.StatusCreated, code)
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeData(t, env, &created)
	assert.Equal(t, "active", created.Status)

	code, _ = api.do(http.MethodPost, "/api/requests", other, map[string]interface{}{
		"itemName":    "Canoe",
		"coordinates": []float64{40.8580, -73.9855},
	})
	require.Equal(t, http.StatusCreated, code)

	code, env = api.do(http.MethodGet, "/api/requests/nearby?lng=-73.9855&lat=40.7580&maxDistance=100", "", nil)
	require.Equal(t, http.StatusOK, code)
	var nearby []map[string]interface{}
	decodeData(t, env, &nearby)
	require.Len(t, nearby, 1)
	assert.Equal(t, "Tent", nearby[0]["itemName"])

	code, env = api.do(http.MethodGet, "/api/requests/nearby?lng=-73.9855&lat=40.7580", "", nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, env, &nearby)
	assert.Len(t, nearby, 1)

	code, env = api.do(http.MethodGet, "/api/requests/nearby?lng=-73.9855&lat=40.7580&maxDistance=50000", "", nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, env, &nearby)
	assert.Len(t, nearby, 2)

	code, _ = api.do(http.MethodPatch, "/api/requests/"+created.ID, other, map[string]string{"status": "fulfilled"})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = api.do(http.MethodPatch, "/api/requests/"+created.ID, owner, map[string]string{"status": "fulfilled"})
	assert.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodGet, "/api/requests", "", nil)
	require.Equal(t, http.StatusOK, code)
	var list []map[string]interface{}
	decodeData(t, env, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Canoe", list[0]["itemName"])

	code, _ = api.do(http.MethodDelete, "/api/requests/"+created.ID, owner, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = api.do(http.MethodDelete, "/api/requests/"+created.ID, owner, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestNearbyRejectsNonFiniteNumbers(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		path  string
		field string
	}{
		{"/api/items/nearby?lng=NaN&lat=40", "lng"},
		{"/api/items/nearby?lng=-73.9&lat=NaN", "lat"},
		{"/api/items/nearby?lng=+Inf&lat=40", "lng"},
		{"/api/items/nearby?lng=-73.9&lat=40.7&maxDistance=NaN", "maxDistance"},
		{"/api/items/nearby?lng=-73.9&lat=40.7&maxDistance=Inf", "maxDistance"},
		{"/api/requests/nearby?lng=NaN&lat=40", "lng"},
		{"/api/requests/nearby?lng=-73.9&lat=-Inf", "lat"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			code, env := api.do(http.MethodGet, tt.path, "", nil)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Contains(t, env.Errors, tt.field)
		})
	}
}

func TestTransactionRoutes(t *testing.T) {
	api := newTestAPI(t)
	lender, lenderID := api.register("Lender", "lender@example.com")
	borrower, borrowerID := api.register("Borrower", "borrower@example.com")
	stranger, _ := api.register("Stranger", "stranger@example.com")
	itemID := api.createItem(lender)

	code, _ := api.do(http.MethodGet, "/api/transactions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = api.do(http.MethodPost, "/api/transactions", lender, map[string]string{"item": itemID, "lender": lenderID})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(http.MethodPost, "/api/transactions", borrower, map[string]string{"item": "missing", "lender": lenderID})
	assert.Equal(t, http.StatusNotFound, code)

	code, env := api.do(http.MethodPost, "/api/transactions", borrower, map[string]string{"item": itemID, "lender": lenderID})
	require.Equal(t, http.StatusCreated, code)
	var tx struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Borrower struct {
			ID string `json:"id"`
		} `json:"borrower"`
		Item struct {
			Title string `json:"title"`
		} `json:"item"`
	}
	decodeData(t, env, &tx)
	assert.Equal(t, "requested", tx.Status)
	assert.Equal(t, borrowerID, tx.Borrower.ID)
	assert.Equal(t, "Ladder", tx.Item.Title)

	code, _ = api.do(http.MethodPost, "/api/transactions/"+tx.ID+"/complete", stranger, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(http.MethodPatch, "/api/transactions/"+tx.ID, lender, map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodPost, "/api/transactions/"+tx.ID+"/complete", borrower, nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, env, &tx)
	assert.Equal(t, "completed", tx.Status)

	code, _ = api.do(http.MethodPost, "/api/transactions/"+tx.ID+"/complete", lender, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodGet, "/api/users/"+lenderID, "", nil)
	require.Equal(t, http.StatusOK, code)
	var user struct {
		EcoPoints int    `json:"ecoPoints"`
		Level     string `json:"level"`
	}
	decodeData(t, env, &user)
	assert.Equal(t, 25, user.EcoPoints)

	code, _ = api.do(http.MethodPatch, "/api/transactions/"+tx.ID+"/rate", lender, map[string]interface{}{"rating": 5, "ratingFor": "lender"})
	assert.Equal(t, http.StatusForbidden, code)
	code, env = api.do(http.MethodPatch, "/api/transactions/"+tx.ID+"/rate", lender, map[string]interface{}{"rating": 0, "ratingFor": "borrower"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Errors, "rating")
	code, _ = api.do(http.MethodPatch, "/api/transactions/"+tx.ID+"/rate", borrower, map[string]interface{}{"rating": 5, "review": "Great", "ratingFor": "lender"})
	assert.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodGet, "/api/transactions/user/"+borrowerID, borrower, nil)
	require.Equal(t, http.StatusOK, code)
	var mine []map[string]interface{}
	decodeData(t, env, &mine)
	assert.Len(t, mine, 1)
}

func TestUserRoutes(t *testing.T) {
	api := newTestAPI(t)
	ana, anaID := api.register("Ana", "ana@example.com")
	ben, benID := api.register("Ben", "ben@example.com")

	code, _ := api.do(http.MethodGet, "/api/users/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = api.do(http.MethodPatch, "/api/users/"+anaID, ben, map[string]string{"name": "Hacked"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(http.MethodPatch, "/api/users/"+anaID, ana, map[string]interface{}{"ecoPoints": 1000})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := api.do(http.MethodPatch, "/api/users/"+anaID, ana, map[string]string{"name": "Ana Maria"})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "Ana Maria")

	code, _ = api.do(http.MethodPatch, "/api/users/"+benID+"/points", ana, map[string]interface{}{"points": 1.5})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = api.do(http.MethodPatch, "/api/users/"+benID+"/points", ana, map[string]interface{}{"points": 60})
	require.Equal(t, http.StatusOK, code)
	var points struct {
		EcoPoints int    `json:"ecoPoints"`
		Level     string `json:"level"`
	}
	decodeData(t, env, &points)
	assert.Equal(t, 60, points.EcoPoints)
	assert.Equal(t, "sapling", points.Level)

	code, env = api.do(http.MethodGet, "/api/users/leaderboard?limit=1", "", nil)
	require.Equal(t, http.StatusOK, code)
	var board []struct {
		ID string `json:"id"`
	}
	decodeData(t, env, &board)
	require.Len(t, board, 1)
	assert.Equal(t, benID, board[0].ID)

	code, env = api.do(http.MethodGet, "/api/users/leaderboard?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Errors, "limit")

	code, env = api.do(http.MethodGet, "/api/users/leaderboard?limit=-5", "", nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, env, &board)
	assert.Len(t, board, 1)
}

func TestUploadRoute(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register("Ana", "ana@example.com")

	upload := func(contentType string, data []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="photo.png"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("text/plain", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload("image/png", []byte("png bytes"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var res struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	decodeData(t, env, &res)
	assert.Contains(t, res.URL, "/uploads/")

	code, _ := api.do(http.MethodDelete, "/api/upload/"+res.ID, token, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.do(http.MethodGet, "/api/items", "", nil)

	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `ecosync_http_requests_total{method="GET",route="/api/items`)
	assert.Contains(t, body, "ecosync_http_inflight_requests")
}

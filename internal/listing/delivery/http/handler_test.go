package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/farm-marketplace/internal/auth"
	"github.com/tair/farm-marketplace/internal/listing/manager"
	"github.com/tair/farm-marketplace/internal/listing/store/memory"
	"github.com/tair/farm-marketplace/internal/listing/usecase/command"
	"github.com/tair/farm-marketplace/internal/listing/usecase/query"
	"github.com/tair/farm-marketplace/internal/location"
)

const testSecret = "test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()

	identity := auth.NewContextProvider()
	m := manager.New(memory.New(), identity, nil, nil, manager.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		m.Close()
	})
	require.NoError(t, m.Start(ctx))
	require.Eventually(t, m.Ready, 2*time.Second, 10*time.Millisecond)

	directory := location.Default()
	h := NewListingHandler(
		command.NewCreateListingHandler(m, directory),
		command.NewDeleteListingHandler(m, identity),
		command.NewSubmitPurchaseRequestHandler(m, identity),
		command.NewAcceptPurchaseRequestHandler(m, identity),
		command.NewRefreshListingsHandler(m),
		query.NewListListingsHandler(m, identity),
		query.NewGetListingHandler(m, identity),
		query.NewMyListingsHandler(m, identity),
		query.NewMyPurchaseRequestsHandler(m, identity),
		directory,
		m,
		auth.NewTokenValidator(testSecret, ""),
		prometheus.NewRegistry(),
	)

	router := mux.NewRouter()
	RegisterMiddlewares(router, &MiddlewareConfig{EnableRecovery: true})
	h.RegisterRoutes(router)
	h.RegisterHealthCheck(router)
	return router
}

func token(t *testing.T, email, name string) string {
	t.Helper()
	claims := auth.Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func do(t *testing.T, router http.Handler, method, path, bearer string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func createWheat(t *testing.T, router http.Handler, seller string, quantity any) string {
	t.Helper()
	rec, env := do(t, router, http.MethodPost, "/api/listings", seller, map[string]any{
		"name":           "wheat",
		"quantity":       quantity,
		"rate":           "2200",
		"category":       "grains",
		"region":         "Pune",
		"sub_region":     "Haveli",
		"seller_name":    "Ramesh",
		"seller_contact": "9123456780",
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)

	var listing struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Location string `json:"location"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listing))
	assert.Equal(t, "Wheat", listing.Name)
	assert.Equal(t, "Haveli, Pune", listing.Location)
	return listing.ID
}

func TestListingHandler_Health(t *testing.T) {
	router := newTestRouter(t)
	rec, env := do(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestListingHandler_CreateRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	rec, env := do(t, router, http.MethodPost, "/api/listings", "", map[string]any{"name": "Wheat"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)

	rec, _ = do(t, router, http.MethodPost, "/api/listings", "not-a-token", map[string]any{"name": "Wheat"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListingHandler_CreateValidation(t *testing.T) {
	router := newTestRouter(t)
	seller := token(t, "seller@example.com", "Ramesh")

	rec, env := do(t, router, http.MethodPost, "/api/listings", seller, map[string]any{
		"name":     "Wheat",
		"quantity": "-3",
		"rate":     "10",
		"category": "GRAINS",
		"location": "Haveli, Pune",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "quantity")

	rec, _ = do(t, router, http.MethodPost, "/api/listings", seller, "{broken")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListingHandler_BrowseMarksOwnListings(t *testing.T) {
	router := newTestRouter(t)
	seller := token(t, "seller@example.com", "Ramesh")
	buyer := token(t, "buyer@example.com", "Suresh")
	id := createWheat(t, router, seller, 10)

	type view struct {
		ID           string `json:"id"`
		IsOwnListing bool   `json:"is_own_listing"`
		State        string `json:"state"`
	}
	list := func(bearer, path string) []view {
		rec, env := do(t, router, http.MethodGet, path, bearer, nil)
		require.Equal(t, http.StatusOK, rec.Code, env.Error)
		var data struct {
			Listings []view `json:"listings"`
			Total    int    `json:"total"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, len(data.Listings), data.Total)
		return data.Listings
	}

	own := list(seller, "/api/listings")
	require.Len(t, own, 1)
	assert.Equal(t, id, own[0].ID)
	assert.True(t, own[0].IsOwnListing)
	assert.Equal(t, "ACTIVE", own[0].State)

	anonymous := list("", "/api/listings?q=WHE&category=grains")
	require.Len(t, anonymous, 1)
	assert.False(t, anonymous[0].IsOwnListing)

	assert.Empty(t, list(buyer, "/api/listings?category=FRUITS"))

	rec, _ := do(t, router, http.MethodGet, "/api/listings?category=spices", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListingHandler_PurchaseFlow(t *testing.T) {
	router := newTestRouter(t)
	seller := token(t, "seller@example.com", "Ramesh")
	buyer := token(t, "buyer@example.com", "Suresh")
	id := createWheat(t, router, seller, 10)

	rec, env := do(t, router, http.MethodPost, "/api/listings/"+id+"/purchase-requests", buyer, map[string]any{
		"delivery_address": "Shivajinagar, Pune",
		"quantity":         6,
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)

	// the buyer cannot take more than what remains
	rec, env = do(t, router, http.MethodPost, "/api/listings/"+id+"/purchase-requests", buyer, map[string]any{
		"delivery_address": "Shivajinagar, Pune",
		"quantity":         "6",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "quantity")

	rec, env = do(t, router, http.MethodGet, "/api/purchase-requests/mine", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []struct {
		ListingID string `json:"listing_id"`
		Request   struct {
			BuyerName         string `json:"buyer_name"`
			BuyerContact      string `json:"buyer_contact"`
			RequestedQuantity int    `json:"requested_quantity"`
			Status            string `json:"status"`
		} `json:"request"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, id, mine[0].ListingID)
	assert.Equal(t, "Suresh", mine[0].Request.BuyerName)
	assert.Equal(t, "buyer@example.com", mine[0].Request.BuyerContact)
	assert.Equal(t, 6, mine[0].Request.RequestedQuantity)
	assert.Equal(t, "PENDING", mine[0].Request.Status)

	accept := map[string]any{"buyer_contact": "buyer@example.com", "accepted_quantity": 4}
	rec, _ = do(t, router, http.MethodPost, "/api/listings/"+id+"/purchase-requests/accept", buyer, accept)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = do(t, router, http.MethodPost, "/api/listings/"+id+"/purchase-requests/accept", seller, accept)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	rec, _ = do(t, router, http.MethodPost, "/api/listings/"+id+"/purchase-requests/accept", seller, accept)
	assert.Equal(t, http.StatusNotFound, rec.Code, "no pending request remains")

	rec, env = do(t, router, http.MethodGet, "/api/listings/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		QuantityAvailable int `json:"quantity_available"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listing))
	assert.Equal(t, 4, listing.QuantityAvailable)
}

func TestListingHandler_Delete(t *testing.T) {
	router := newTestRouter(t)
	seller := token(t, "seller@example.com", "Ramesh")
	buyer := token(t, "buyer@example.com", "Suresh")
	id := createWheat(t, router, seller, "10")

	rec, _ := do(t, router, http.MethodDelete, "/api/listings/"+id, buyer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := do(t, router, http.MethodDelete, "/api/listings/"+id, seller, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	rec, _ = do(t, router, http.MethodGet, "/api/listings/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = do(t, router, http.MethodGet, "/api/listings/mine", seller, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestListingHandler_CatalogAndLocations(t *testing.T) {
	router := newTestRouter(t)

	rec, env := do(t, router, http.MethodGet, "/api/catalog/fruits", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fruits []string
	require.NoError(t, json.Unmarshal(env.Data, &fruits))
	assert.Contains(t, fruits, "Mango")

	rec, _ = do(t, router, http.MethodGet, "/api/catalog/spices", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = do(t, router, http.MethodGet, "/api/locations/regions?q=pun", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var regions []string
	require.NoError(t, json.Unmarshal(env.Data, &regions))
	require.NotEmpty(t, regions)
	assert.Equal(t, "Pune", regions[0])

	rec, env = do(t, router, http.MethodGet, "/api/locations/regions/Pune/sub-regions?q=hav", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var subs []string
	require.NoError(t, json.Unmarshal(env.Data, &subs))
	assert.Equal(t, []string{"Haveli"}, subs)

	rec, _ = do(t, router, http.MethodGet, "/api/locations/regions/Atlantis/sub-regions", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListingHandler_RecoversFromPanic(t *testing.T) {
	router := mux.NewRouter()
	router.Use(RecoveryMiddleware())
	router.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec, env := do(t, router, http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, env.Success)
}

func TestFlexString(t *testing.T) {
	var v struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12","b":7,"c":null}`), &v))
	assert.Equal(t, flexString("12"), v.A)
	assert.Equal(t, flexString("7"), v.B)
	assert.Equal(t, flexString(""), v.C)
}

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/farm-marketplace/internal/auth"
	"github.com/tair/farm-marketplace/internal/catalog"
	"github.com/tair/farm-marketplace/internal/listing/domain"
	"github.com/tair/farm-marketplace/internal/listing/usecase/command"
	"github.com/tair/farm-marketplace/internal/listing/usecase/query"
	"github.com/tair/farm-marketplace/internal/location"
	"github.com/tair/farm-marketplace/pkg/logger"
)

// ReadinessChecker reports whether the listing cache has loaded
type ReadinessChecker interface {
	Ready() bool
}

// ListingHandler handles HTTP requests for listings using the CQRS handlers
type ListingHandler struct {
	// Command handlers
	createHandler  *command.CreateListingHandler
	deleteHandler  *command.DeleteListingHandler
	submitHandler  *command.SubmitPurchaseRequestHandler
	acceptHandler  *command.AcceptPurchaseRequestHandler
	refreshHandler *command.RefreshListingsHandler

	// Query handlers
	listHandler       *query.ListListingsHandler
	getHandler        *query.GetListingHandler
	mineHandler       *query.MyListingsHandler
	myRequestsHandler *query.MyPurchaseRequestsHandler

	directory *location.Directory
	readiness ReadinessChecker
	validator *auth.TokenValidator
	limiter   *RateLimiter

	requestCounter *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// NewListingHandler creates a new listing handler. Metrics are registered with reg when it is not nil.
func NewListingHandler(
	createHandler *command.CreateListingHandler,
	deleteHandler *command.DeleteListingHandler,
	submitHandler *command.SubmitPurchaseRequestHandler,
	acceptHandler *command.AcceptPurchaseRequestHandler,
	refreshHandler *command.RefreshListingsHandler,
	listHandler *query.ListListingsHandler,
	getHandler *query.GetListingHandler,
	mineHandler *query.MyListingsHandler,
	myRequestsHandler *query.MyPurchaseRequestsHandler,
	directory *location.Directory,
	readiness ReadinessChecker,
	validator *auth.TokenValidator,
	reg prometheus.Registerer,
) *ListingHandler {
	requestCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_http_requests_total",
			Help: "Total number of HTTP requests to the marketplace service",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketplace_http_request_duration_seconds",
			Help:    "Duration of marketplace HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	if reg != nil {
		reg.MustRegister(requestCounter, requestLatency)
	}

	return &ListingHandler{
		createHandler:     createHandler,
		deleteHandler:     deleteHandler,
		submitHandler:     submitHandler,
		acceptHandler:     acceptHandler,
		refreshHandler:    refreshHandler,
		listHandler:       listHandler,
		getHandler:        getHandler,
		mineHandler:       mineHandler,
		myRequestsHandler: myRequestsHandler,
		directory:         directory,
		readiness:         readiness,
		validator:         validator,
		requestCounter:    requestCounter,
		requestLatency:    requestLatency,
	}
}

// SetRateLimiter limits listing mutations; call before RegisterRoutes
func (h *ListingHandler) SetRateLimiter(rl *RateLimiter) {
	h.limiter = rl
}

func (h *ListingHandler) limit(next http.HandlerFunc) http.HandlerFunc {
	if h.limiter == nil {
		return next
	}
	return h.limiter.Middleware(next)
}

// Response is the JSON envelope of every endpoint
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware wraps handlers with Prometheus metrics
func (h *ListingHandler) metricsMiddleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		h.requestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
		h.requestLatency.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// RegisterRoutes registers all listing, catalog and location routes
func (h *ListingHandler) RegisterRoutes(router *mux.Router) {
	required := AuthMiddleware(h.validator)
	optional := OptionalAuthMiddleware(h.validator)

	// Browsing works anonymously; a valid token only marks the caller's own listings
	router.HandleFunc("/api/listings", h.metricsMiddleware("/api/listings", optional(h.ListListings))).Methods("GET")
	router.HandleFunc("/api/listings/mine", h.metricsMiddleware("/api/listings/mine", required(h.MyListings))).Methods("GET")
	router.HandleFunc("/api/listings/{id}", h.metricsMiddleware("/api/listings/{id}", optional(h.GetListing))).Methods("GET")

	router.HandleFunc("/api/listings", h.metricsMiddleware("/api/listings", required(h.limit(h.CreateListing)))).Methods("POST")
	router.HandleFunc("/api/listings/refresh", h.metricsMiddleware("/api/listings/refresh", required(h.RefreshListings))).Methods("POST")
	router.HandleFunc("/api/listings/{id}", h.metricsMiddleware("/api/listings/{id}", required(h.DeleteListing))).Methods("DELETE")
	router.HandleFunc("/api/listings/{id}/purchase-requests", h.metricsMiddleware("/api/listings/{id}/purchase-requests", required(h.limit(h.SubmitPurchaseRequest)))).Methods("POST")
	router.HandleFunc("/api/listings/{id}/purchase-requests/accept", h.metricsMiddleware("/api/listings/{id}/purchase-requests/accept", required(h.AcceptPurchaseRequest))).Methods("POST")
	router.HandleFunc("/api/purchase-requests/mine", h.metricsMiddleware("/api/purchase-requests/mine", required(h.MyPurchaseRequests))).Methods("GET")

	router.HandleFunc("/api/catalog", h.metricsMiddleware("/api/catalog", h.GetCatalog)).Methods("GET")
	router.HandleFunc("/api/catalog/{category}", h.metricsMiddleware("/api/catalog/{category}", h.GetCategoryCrops)).Methods("GET")
	router.HandleFunc("/api/locations/regions", h.metricsMiddleware("/api/locations/regions", h.SearchRegions)).Methods("GET")
	router.HandleFunc("/api/locations/regions/{region}/sub-regions", h.metricsMiddleware("/api/locations/regions/{region}/sub-regions", h.SearchSubRegions)).Methods("GET")
}

// RegisterHealthCheck registers health check endpoint
func (h *ListingHandler) RegisterHealthCheck(router *mux.Router) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if h.readiness != nil && !h.readiness.Ready() {
			respondJSON(w, http.StatusServiceUnavailable, Response{
				Success: false,
				Error:   "Listings not loaded yet",
			})
			return
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Marketplace service is healthy",
		})
	}).Methods("GET")
}

// flexString accepts either a JSON string or a JSON number and keeps the raw text
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// CreateListing handles POST /api/listings
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string     `json:"name"`
		Quantity      flexString `json:"quantity"`
		Rate          flexString `json:"rate"`
		Category      string     `json:"category"`
		Location      string     `json:"location"`
		Region        string     `json:"region"`
		SubRegion     string     `json:"sub_region"`
		SellerName    string     `json:"seller_name"`
		SellerContact flexString `json:"seller_contact"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd := command.CreateListingCommand{
		Name:          req.Name,
		Quantity:      string(req.Quantity),
		Rate:          string(req.Rate),
		Category:      req.Category,
		Location:      req.Location,
		Region:        req.Region,
		SubRegion:     req.SubRegion,
		SellerName:    req.SellerName,
		SellerContact: string(req.SellerContact),
	}

	listing, err := h.createHandler.Handle(r.Context(), cmd)
	if err != nil {
		h.respondFailure(w, r, "Failed to create listing", err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Listing created successfully",
		Data:    listing,
	})
}

// ListListings handles GET /api/listings
func (h *ListingHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	q := query.ListListingsQuery{
		Query:    r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	}

	listings, err := h.listHandler.Handle(r.Context(), q)
	if err != nil {
		h.respondFailure(w, r, "Failed to list listings", err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"listings": listings,
			"total":    len(listings),
		},
	})
}

// GetListing handles GET /api/listings/{id}
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.getHandler.Handle(r.Context(), query.GetListingQuery{ID: mux.Vars(r)["id"]})
	if err != nil {
		h.respondFailure(w, r, "Failed to get listing", err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    listing,
	})
}

// DeleteListing handles DELETE /api/listings/{id}
func (h *ListingHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	cmd := command.DeleteListingCommand{ListingID: mux.Vars(r)["id"]}
	if err := h.deleteHandler.Handle(r.Context(), cmd); err != nil {
		h.respondFailure(w, r, "Failed to delete listing", err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Listing deleted successfully",
	})
}

// SubmitPurchaseRequest handles POST /api/listings/{id}/purchase-requests
func (h *ListingHandler) SubmitPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BuyerName       string     `json:"buyer_name"`
		DeliveryAddress string     `json:"delivery_address"`
		Quantity        flexString `json:"quantity"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd := command.SubmitPurchaseRequestCommand{
		ListingID:       mux.Vars(r)["id"],
		BuyerName:       req.BuyerName,
		DeliveryAddress: req.DeliveryAddress,
		Quantity:        string(req.Quantity),
	}

	request, err := h.submitHandler.Handle(r.Context(), cmd)
	if err != nil {
		h.respondFailure(w, r, "Failed to submit purchase request", err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Purchase request submitted successfully",
		Data:    request,
	})
}

// AcceptPurchaseRequest handles POST /api/listings/{id}/purchase-requests/accept
func (h *ListingHandler) AcceptPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BuyerContact     string     `json:"buyer_contact"`
		AcceptedQuantity flexString `json:"accepted_quantity"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd := command.AcceptPurchaseRequestCommand{
		ListingID:        mux.Vars(r)["id"],
		BuyerContact:     req.BuyerContact,
		AcceptedQuantity: string(req.AcceptedQuantity),
	}

	if err := h.acceptHandler.Handle(r.Context(), cmd); err != nil {
		h.respondFailure(w, r, "Failed to accept purchase request", err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Purchase request accepted successfully",
	})
}

// RefreshListings handles POST /api/listings/refresh
func (h *ListingHandler) RefreshListings(w http.ResponseWriter, r *http.Request) {
	if err := h.refreshHandler.Handle(r.Context(), command.RefreshListingsCommand{}); err != nil {
		h.respondFailure(w, r, "Failed to refresh listings", err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Listings refreshed",
	})
}

// MyListings handles GET /api/listings/mine
func (h *ListingHandler) MyListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.mineHandler.Handle(r.Context(), query.MyListingsQuery{})
	if err != nil {
		h.respondFailure(w, r, "Failed to list own listings", err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    listings,
	})
}

// MyPurchaseRequests handles GET /api/purchase-requests/mine
func (h *ListingHandler) MyPurchaseRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.myRequestsHandler.Handle(r.Context(), query.MyPurchaseRequestsQuery{})
	if err != nil {
		h.respondFailure(w, r, "Failed to list own purchase requests", err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    requests,
	})
}

// GetCatalog handles GET /api/catalog
func (h *ListingHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"categories": domain.Categories,
			"crops":      catalog.CategoriesToNames(),
		},
	})
}

// GetCategoryCrops handles GET /api/catalog/{category}
func (h *ListingHandler) GetCategoryCrops(w http.ResponseWriter, r *http.Request) {
	category, ok := domain.ParseCategory(mux.Vars(r)["category"])
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown category")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    catalog.Names(category),
	})
}

// SearchRegions handles GET /api/locations/regions
func (h *ListingHandler) SearchRegions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    h.directory.SearchRegions(r.URL.Query().Get("q")),
	})
}

// SearchSubRegions handles GET /api/locations/regions/{region}/sub-regions
func (h *ListingHandler) SearchSubRegions(w http.ResponseWriter, r *http.Request) {
	region := mux.Vars(r)["region"]
	if len(h.directory.SubRegions(region)) == 0 {
		respondError(w, http.StatusNotFound, "Unknown region")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    h.directory.SearchSubRegions(region, r.URL.Query().Get("q")),
	})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrStore):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *ListingHandler) respondFailure(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	event := logger.WithContext(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = logger.WithContext(r.Context()).Error()
	}
	event.Err(err).Int("status", status).Str("path", r.URL.Path).Msg(msg)

	respondError(w, status, err.Error())
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError sends a failed Response envelope
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Response{
		Success: false,
		Error:   message,
	})
}

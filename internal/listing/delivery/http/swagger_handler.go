package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterSwaggerDocs registers Swagger documentation routes
// @Summary Swagger documentation
// @Description Swagger API documentation for the Farm Marketplace service
// @Tags Swagger
// @Success 200 {string} string "Swagger UI"
// @Router /swagger/ [get]
func RegisterSwaggerDocs(router *mux.Router, swaggerHandler http.Handler) {
	router.PathPrefix("/swagger/").Handler(swaggerHandler)
}

// ListListings godoc
// @Summary List listings
// @Description Browse listings newest first, filtered by crop name substring and category
// @Tags Listings
// @Security BearerAuth
// @Produce json
// @Param q query string false "Case-insensitive crop name filter"
// @Param category query string false "GRAINS, VEGETABLES, FRUITS or OILSEEDS"
// @Success 200 {object} object{success=bool,data=object{listings=array,total=int}}
// @Failure 400 {object} object{success=bool,error=string}
// @Router /api/listings [get]
func (h *ListingHandler) ListListingsDoc() {}

// CreateListing godoc
// @Summary Create listing
// @Description Offer a crop for sale (Authenticated users)
// @Tags Listings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{name=string,quantity=string,rate=string,category=string,location=string,region=string,sub_region=string,seller_name=string,seller_contact=string} true "Listing data"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 401 {object} object{success=bool,error=string}
// @Failure 502 {object} object{success=bool,error=string}
// @Router /api/listings [post]
func (h *ListingHandler) CreateListingDoc() {}

// GetListing godoc
// @Summary Get listing by ID
// @Tags Listings
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/listings/{id} [get]
func (h *ListingHandler) GetListingDoc() {}

// DeleteListing godoc
// @Summary Delete listing
// @Description Remove a listing (Seller only)
// @Tags Listings
// @Security BearerAuth
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 403 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/listings/{id} [delete]
func (h *ListingHandler) DeleteListingDoc() {}

// SubmitPurchaseRequest godoc
// @Summary Submit purchase request
// @Description Ask to buy part of a listing; the quantity is reserved immediately
// @Tags Purchase Requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Listing ID"
// @Param request body object{buyer_name=string,delivery_address=string,quantity=string} true "Purchase request"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/listings/{id}/purchase-requests [post]
func (h *ListingHandler) SubmitPurchaseRequestDoc() {}

// AcceptPurchaseRequest godoc
// @Summary Accept purchase request
// @Description Accept the oldest pending request of a buyer (Seller only)
// @Tags Purchase Requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Listing ID"
// @Param request body object{buyer_contact=string,accepted_quantity=string} true "Acceptance"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 403 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/listings/{id}/purchase-requests/accept [post]
func (h *ListingHandler) AcceptPurchaseRequestDoc() {}

// RefreshListings godoc
// @Summary Refresh listings
// @Description Reload every listing from the store
// @Tags Listings
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{success=bool,message=string}
// @Failure 502 {object} object{success=bool,error=string}
// @Router /api/listings/refresh [post]
func (h *ListingHandler) RefreshListingsDoc() {}

// MyListings godoc
// @Summary My listings
// @Tags Listings
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{success=bool,data=array}
// @Failure 401 {object} object{success=bool,error=string}
// @Router /api/listings/mine [get]
func (h *ListingHandler) MyListingsDoc() {}

// MyPurchaseRequests godoc
// @Summary My purchase requests
// @Tags Purchase Requests
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{success=bool,data=array}
// @Failure 401 {object} object{success=bool,error=string}
// @Router /api/purchase-requests/mine [get]
func (h *ListingHandler) MyPurchaseRequestsDoc() {}

// GetCatalog godoc
// @Summary Crop catalog
// @Tags Catalog
// @Produce json
// @Success 200 {object} object{success=bool,data=object}
// @Router /api/catalog [get]
func (h *ListingHandler) GetCatalogDoc() {}

// SearchRegions godoc
// @Summary Search regions
// @Tags Locations
// @Produce json
// @Param q query string false "Search text"
// @Success 200 {object} object{success=bool,data=array}
// @Router /api/locations/regions [get]
func (h *ListingHandler) SearchRegionsDoc() {}

// SearchSubRegions godoc
// @Summary Search sub-regions of a region
// @Tags Locations
// @Produce json
// @Param region path string true "Region"
// @Param q query string false "Search text"
// @Success 200 {object} object{success=bool,data=array}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/locations/regions/{region}/sub-regions [get]
func (h *ListingHandler) SearchSubRegionsDoc() {}

// HealthCheck godoc
// @Summary Health check
// @Description Reports whether the listing cache has loaded
// @Tags Health
// @Produce json
// @Success 200 {object} object{success=bool,message=string}
// @Failure 503 {object} object{success=bool,error=string}
// @Router /health [get]
func (h *ListingHandler) HealthCheckDoc() {}

package main

// @title Farm Marketplace API
// @version 1.0
// @description Crop listings, purchase requests, catalog and location search with full observability (logging, tracing, metrics)

// @contact.name API Support

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name Listings
// @tag.description Crop listing endpoints

// @tag.name Purchase Requests
// @tag.description Buyer requests and seller acceptance

// @tag.name Catalog
// @tag.description Crop catalog endpoints

// @tag.name Locations
// @tag.description Region and sub-region search

// @tag.name Health
// @tag.description Health check endpoints

package api

import (
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler, log zerolog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(accessLog(log))

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Company routes
	api.HandleFunc("/companies", handler.ListCompanies).Methods("GET")
	api.HandleFunc("/companies", handler.CreateCompany).Methods("POST")
	api.HandleFunc("/companies/{ticker}", handler.GetCompany).Methods("GET")
	api.HandleFunc("/companies/{ticker}", handler.UpdateCompany).Methods("PUT")
	api.HandleFunc("/companies/{ticker}", handler.DeleteCompany).Methods("DELETE")
	api.HandleFunc("/companies/{ticker}/ensure", handler.EnsureCompany).Methods("POST")

	// Portfolio routes
	api.HandleFunc("/portfolios", handler.ListPortfolios).Methods("GET")
	api.HandleFunc("/portfolios", handler.CreatePortfolio).Methods("POST")
	api.HandleFunc("/portfolios/{id:[0-9]+}", handler.GetPortfolio).Methods("GET")
	api.HandleFunc("/portfolios/{id:[0-9]+}", handler.UpdatePortfolio).Methods("PUT")
	api.HandleFunc("/portfolios/{id:[0-9]+}", handler.DeletePortfolio).Methods("DELETE")
	api.HandleFunc("/portfolios/{id:[0-9]+}/positions", handler.ListPortfolioPositions).Methods("GET")
	api.HandleFunc("/portfolios/{id:[0-9]+}/positions/import", handler.ImportPositions).Methods("POST")

	// Position routes
	api.HandleFunc("/positions", handler.ListPositions).Methods("GET")
	api.HandleFunc("/positions", handler.CreatePosition).Methods("POST")
	api.HandleFunc("/positions/{id:[0-9]+}", handler.GetPosition).Methods("GET")
	api.HandleFunc("/positions/{id:[0-9]+}", handler.UpdatePosition).Methods("PUT")
	api.HandleFunc("/positions/{id:[0-9]+}", handler.DeletePosition).Methods("DELETE")

	// Price routes
	api.HandleFunc("/prices", handler.ListPrices).Methods("GET")
	api.HandleFunc("/prices", handler.CreatePrice).Methods("POST")
	api.HandleFunc("/prices/batch", handler.CreatePrices).Methods("POST")
	api.HandleFunc("/prices/{ticker}/{date}", handler.GetPrice).Methods("GET")
	api.HandleFunc("/prices/{ticker}/{date}", handler.UpdatePrice).Methods("PUT")
	api.HandleFunc("/prices/{ticker}/{date}", handler.DeletePrice).Methods("DELETE")

	return r
}

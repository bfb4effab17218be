// cmd/api/main.go
package main

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"time"
)

func main() {
	catalogServiceURL, err := url.Parse(getEnv("CATALOG_SERVICE_URL", "http://localhost:8081"))
	if err != nil {
		log.Fatalf("Invalid CATALOG_SERVICE_URL: %v", err)
	}
	queryServiceURL, err := url.Parse(getEnv("QUERY_SERVICE_URL", "http://localhost:8082"))
	if err != nil {
		log.Fatalf("Invalid QUERY_SERVICE_URL: %v", err)
	}

	server := &http.Server{
		Addr:              ":" + getEnv("PORT", "8080"),
		Handler:           newGateway(catalogServiceURL, queryServiceURL),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("API Gateway listening on %s", server.Addr)
	log.Fatal(server.ListenAndServe())
}

// newGateway routes commands to the catalog service and reads to the query service.
func newGateway(catalogServiceURL, queryServiceURL *url.URL) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/v1/catalog/", http.StripPrefix("/api/v1/catalog", httputil.NewSingleHostReverseProxy(catalogServiceURL)))
	mux.Handle("/api/v1/query/", http.StripPrefix("/api/v1/query", httputil.NewSingleHostReverseProxy(queryServiceURL)))
	return mux
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

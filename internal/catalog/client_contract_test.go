package catalog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// TestHTTPClientSmoke checks that the client can parse at least one record
// from a running catalog (for example cmd/catalog-mock).
func TestHTTPClientSmoke(t *testing.T) {
	baseURL := os.Getenv("CATALOG_URL")
	if baseURL == "" {
		t.Skip("CATALOG_URL not provided")
	}
	client, err := NewHTTPClient(Options{
		BaseURL: baseURL,
		APIKey:  os.Getenv("CATALOG_API_KEY"),
		Timeout: 3 * time.Second,
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("create http client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := client.Lookup(ctx, "Inception")
	if err != nil {
		t.Fatalf("lookup mock data: %v", err)
	}
	if result.Genre == nil || *result.Genre == "" {
		t.Fatalf("unexpected catalog payload: %+v", result)
	}
}

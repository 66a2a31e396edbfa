package docs

import (
	"strings"
	"testing"

	"github.com/swaggo/swag"
)

func TestSwaggerInfoRegistered(t *testing.T) {
	if SwaggerInfo == nil {
		t.Fatal("swagger info not initialized")
	}
	if SwaggerInfo.Title == "" {
		t.Fatal("swagger info missing title")
	}
}

func TestSwaggerDocumentsAnalyticsRoutes(t *testing.T) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		t.Fatalf("read doc: %v", err)
	}
	for _, path := range []string{
		"/api/analytics/portfolio-performance",
		"/api/analytics/token-latest-price",
		"/api/analytics/timeframes",
	} {
		if !strings.Contains(doc, path) {
			t.Fatalf("expected %s in swagger doc", path)
		}
	}
}

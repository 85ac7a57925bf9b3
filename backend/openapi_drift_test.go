package backend

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
)

// openAPIDoc is the minimal structure we need from the document.
type openAPIDoc struct {
	Paths map[string]map[string]interface{} `yaml:"paths"`
}

// TestOpenAPIDrift walks the chi router and compares the registered routes
// against the embedded openapi.yaml. It fails if any routes are
// undocumented or if the document contains stale paths.
func TestOpenAPIDrift(t *testing.T) {
	var doc openAPIDoc
	if err := yaml.Unmarshal(openapiSpec, &doc); err != nil {
		t.Fatalf("failed to parse openapi.yaml: %v", err)
	}

	specRoutes := make(map[string]bool)
	for path, methods := range doc.Paths {
		for method := range methods {
			method = strings.ToUpper(method)
			// Skip extension keys (x-...) and shared parameters.
			if strings.HasPrefix(strings.ToLower(method), "x-") || method == "PARAMETERS" {
				continue
			}
			specRoutes[method+" "+path] = true
		}
	}

	// Router() only registers routes and never invokes handlers, so a
	// zero-value API is enough.
	a := &API{}
	router := a.Router()

	chiRoutes := make(map[string]bool)
	err := chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		route = strings.TrimRight(route, "/")
		if route == "" {
			route = "/"
		}

		// Utility routes are not part of the API contract.
		if route == "/openapi.yaml" || route == "/health" || route == "/metrics" ||
			strings.HasPrefix(route, "/docs") {
			return nil
		}

		chiRoutes[method+" "+route] = true
		return nil
	})
	if err != nil {
		t.Fatalf("chi.Walk failed: %v", err)
	}

	var undocumented []string
	for route := range chiRoutes {
		if !specRoutes[route] {
			undocumented = append(undocumented, route)
		}
	}
	sort.Strings(undocumented)

	var stale []string
	for route := range specRoutes {
		if !chiRoutes[route] {
			stale = append(stale, route)
		}
	}
	sort.Strings(stale)

	if len(undocumented) > 0 {
		t.Errorf("routes registered in Router() but missing from openapi.yaml:\n%s",
			formatRouteList(undocumented))
	}

	if len(stale) > 0 {
		t.Errorf("routes in openapi.yaml but not registered in Router():\n%s",
			formatRouteList(stale))
	}
}

func formatRouteList(routes []string) string {
	var b strings.Builder
	for _, r := range routes {
		fmt.Fprintf(&b, "  - %s\n", r)
	}
	return b.String()
}

type openAPIOperation struct {
	Security []map[string][]string `yaml:"security"`
}

// TestOpenAPICallerHeader checks that exactly the routes behind Identify's
// RequireUser/RequireAdmin gates document the caller header.
func TestOpenAPICallerHeader(t *testing.T) {
	var doc struct {
		Paths      map[string]map[string]yaml.Node `yaml:"paths"`
		Components struct {
			SecuritySchemes map[string]struct {
				In   string `yaml:"in"`
				Name string `yaml:"name"`
			} `yaml:"securitySchemes"`
		} `yaml:"components"`
	}
	if err := yaml.Unmarshal(openapiSpec, &doc); err != nil {
		t.Fatalf("failed to parse openapi.yaml: %v", err)
	}

	scheme, ok := doc.Components.SecuritySchemes["userHeader"]
	if !ok || scheme.In != "header" || scheme.Name != UserHeader {
		t.Fatalf("userHeader scheme = %+v, want header %s", scheme, UserHeader)
	}

	secured := map[string]bool{
		"GET /users/{userID}":                             true,
		"GET /users/{userID}/events":                      true,
		"POST /events":                                    true,
		"PUT /events/{eventID}":                           true,
		"DELETE /events/{eventID}":                        true,
		"POST /events/{eventID}/registrations":            true,
		"DELETE /events/{eventID}/registrations/{userID}": true,
		"POST /auth/login":                                false,
		"POST /users":                                     false,
		"GET /events":                                     false,
		"GET /events/{eventID}":                           false,
	}
	for route, want := range secured {
		method, path, _ := strings.Cut(route, " ")
		node, ok := doc.Paths[path][strings.ToLower(method)]
		if !ok {
			t.Errorf("%s is not documented", route)
			continue
		}
		var op openAPIOperation
		if err := node.Decode(&op); err != nil {
			t.Fatalf("decode %s: %v", route, err)
		}
		got := len(op.Security) > 0
		if got != want {
			t.Errorf("%s documents caller header = %v, want %v", route, got, want)
		}
	}
}

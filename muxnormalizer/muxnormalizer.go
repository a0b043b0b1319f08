// Package muxnormalizer normalizes request paths to improve
// compatibility with TV clients that deviate from the documented API
// casing, e.g. /DVR/Recordings instead of /dvr/recordings.
package muxnormalizer

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type Normalizer struct {
	bySegmentCount map[int][]routeTemplate
}

type routeTemplate struct {
	staticPos map[int]string
}

// New builds a request normalizer from all registered routes.
func New(r *mux.Router) (*Normalizer, error) {
	n := &Normalizer{
		bySegmentCount: make(map[int][]routeTemplate),
	}

	err := r.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		template, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}

		staticPos := make(map[int]string)
		segIndex := 0
		for _, part := range strings.Split(template, "/") {
			if part == "" {
				continue
			}
			// Skip path parameters
			if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
				segIndex++
				continue
			}
			staticPos[segIndex] = part
			segIndex++
		}

		n.bySegmentCount[segIndex] = append(n.bySegmentCount[segIndex],
			routeTemplate{staticPos: staticPos})
		return nil
	})

	return n, err
}

// Middleware returns an HTTP middleware that normalizes request paths.
func (n *Normalizer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Remove duplicate slashes
		for strings.Contains(path, "//") {
			path = strings.ReplaceAll(path, "//", "/")
		}

		// Remove trailing slash (except for root path)
		if path != "/" && strings.HasSuffix(path, "/") {
			path = path[:len(path)-1]
		}

		r.URL.Path = n.normalizePath(path)

		next.ServeHTTP(w, r)
	})
}

// normalizePath canonicalizes the casing of static path segments using
// the route index. Unknown paths pass through unchanged.
func (n *Normalizer) normalizePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 1 && segments[0] == "" {
		return path
	}

	templates, ok := n.bySegmentCount[len(segments)]
	if !ok {
		return path
	}

	for _, t := range templates {
		matched := true
		for pos, want := range t.staticPos {
			if !strings.EqualFold(segments[pos], want) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		for pos, want := range t.staticPos {
			segments[pos] = want
		}
		return "/" + strings.Join(segments, "/")
	}
	return path
}

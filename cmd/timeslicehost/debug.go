package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"holodeck1/cosmos"
	"holodeck1/simconfig"
)

// requireBearer gates a handler behind an HS256 JWT, the same
// signing-method-pinned verify shape auth/manager.go's ValidateToken uses
// (minus the database-backed revocation list, which this thin debug
// surface has no use for).
func requireBearer(secret []byte, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

// newDebugRouter builds the debug HTTP surface: an unauthenticated
// liveness probe and a bearer-gated per-cosmos inspector. Explicitly thin
// per SPEC_FULL.md's framing — this exists only so the module has a
// runnable example the way the teacher's main.go does, not as a
// productized admin API.
func newDebugRouter(cosmoses map[uint8]*cosmos.Cosmos, jwtSecret []byte) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/debug/cosmos/{id}", requireBearer(jwtSecret, func(w http.ResponseWriter, r *http.Request) {
		idStr := mux.Vars(r)["id"]
		id, err := strconv.Atoi(idStr)
		if err != nil || id < 0 || id > 255 {
			http.Error(w, "invalid cosmos id", http.StatusBadRequest)
			return
		}

		c, ok := cosmoses[uint8(id)]
		if !ok {
			http.Error(w, "unknown cosmos id", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"host_id":       c.HostID,
			"is_host":       c.IsHost,
			"coherency":     c.Coherency,
			"entity_count":  c.Stator.Entities.Count(),
			"cosmos_config": simconfig.FromCosmos(c).String(),
		})
	})).Methods(http.MethodGet)

	return r
}

package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// POST /dvr/login
//
// loginHandler authenticates a user by name and issues an access token.
func (a *API) loginHandler(w http.ResponseWriter, r *http.Request) {
	var request LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request", http.StatusUnauthorized)
		return
	}
	if len(request.Username) == 0 || len(request.Password) == 0 {
		http.Error(w, "username and password required", http.StatusUnauthorized)
		return
	}

	user, err := a.repo.GetUser(r.Context(), request.Username)
	if err != nil {
		http.Error(w, "Invalid username/password", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(request.Password)); err != nil {
		http.Error(w, "Invalid username/password", http.StatusUnauthorized)
		return
	}

	remoteAddress, _, _ := net.SplitHostPort(r.RemoteAddr)
	accesstoken, err := a.repo.CreateAccessToken(r.Context(), user.ID, request.DeviceName, remoteAddress)
	if err != nil {
		http.Error(w, "Failed to generate access token", http.StatusInternalServerError)
		return
	}

	serveJSON(LoginResponse{
		AccessToken: accesstoken,
		UserID:      user.ID,
		Username:    user.Username,
	}, w)
}

// bearerToken extracts a Bearer authorization header value.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

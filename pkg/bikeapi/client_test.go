package bikeapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/busterbike/ride-tracker/internal/domain/bike"
	"github.com/busterbike/ride-tracker/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/"}, NewTokenStore(token), logger.NewNop())
}

// TestClient_GetReservedBike tests the reservation lookup and its status mapping
func TestClient_GetReservedBike(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantID  bike.ID
	}{
		{"reserved bike", http.StatusOK, `{"id": 7, "name": "Buster 7", "latitude": "52.1", "longitude": "4.3"}`, nil, "7"},
		{"unauthorized", http.StatusUnauthorized, `{"detail": "no"}`, ErrUnauthenticated, ""},
		{"forbidden", http.StatusForbidden, ``, ErrUnauthenticated, ""},
		{"not found", http.StatusNotFound, ``, ErrNoReservation, ""},
		{"empty body", http.StatusOK, ``, ErrNoReservation, ""},
		{"null body", http.StatusOK, `null`, ErrNoReservation, ""},
		{"empty object", http.StatusOK, `{}`, ErrNoReservation, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/users/reserved/", r.URL.Path)
				assert.Equal(t, "Token abc", r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}, "abc")

			b, err := c.GetReservedBike(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, b)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, b.ID)
			assert.Equal(t, 52.1, b.Latitude.Float64())
			assert.Equal(t, 4.3, b.Longitude.Float64())
		})
	}
}

// TestClient_GetReservedBike_ServerError tests that unexpected statuses surface as StatusError
func TestClient_GetReservedBike_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "boom")
	}, "")

	_, err := c.GetReservedBike(context.Background())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "boom", statusErr.Body)
}

// TestClient_NoTokenNoHeader tests that anonymous requests carry no Authorization header
func TestClient_NoTokenNoHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[]`)
	}, "")

	bikes, err := c.ListBikes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bikes)
}

// TestClient_EndRide tests the completion payload
func TestClient_EndRide(t *testing.T) {
	var got map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/reserved/end/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}, "abc")

	b := bike.Bike{ID: "7", Name: "Buster 7"}
	b.SetLocation(52.2, 4.4)
	err := c.EndRide(context.Background(), EndRideRequest{Bike: b, DrivenDistance: "0.11"})
	require.NoError(t, err)

	assert.Equal(t, "0.11", got["driven_distance"])
	assert.Equal(t, "52.2", got["latitude"])
	assert.Equal(t, "4.4", got["longitude"])
	assert.Equal(t, "7", got["id"])
	assert.Equal(t, "Buster 7", got["name"])
}

// TestClient_EndRide_Errors tests the completion status mapping
func TestClient_EndRide_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrUnauthenticated)
		}},
		{"bad request", http.StatusBadRequest, func(t *testing.T, err error) {
			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}, "abc")
			err := c.EndRide(context.Background(), EndRideRequest{DrivenDistance: "0.00"})
			tt.check(t, err)
		})
	}
}

// TestClient_ReserveBike tests reservation requests
func TestClient_ReserveBike(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"accepted", http.StatusOK, false},
		{"created", http.StatusCreated, false},
		{"already reserved", http.StatusConflict, true},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/bikes/reserve/7/", r.URL.Path)
				w.WriteHeader(tt.status)
			}, "abc")

			err := c.ReserveBike(context.Background(), "7")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrReservationRejected)
				return
			}
			assert.NoError(t, err)
		})
	}
}

// TestClient_ListBikes tests decoding the bike list
func TestClient_ListBikes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bikes/list/", r.URL.Path)
		_, _ = io.WriteString(w, `[
			{"id": 1, "name": "Buster 1", "latitude": "52.1", "longitude": "4.3", "is_available": true},
			{"id": "2", "name": "Buster 2", "latitude": 52.2, "longitude": 4.4, "is_in_use": true}
		]`)
	}, "abc")

	bikes, err := c.ListBikes(context.Background())
	require.NoError(t, err)
	require.Len(t, bikes, 2)
	assert.Equal(t, bike.ID("1"), bikes[0].ID)
	assert.True(t, bikes[0].IsAvailable)
	assert.Equal(t, bike.ID("2"), bikes[1].ID)
	assert.Equal(t, 52.2, bikes[1].Latitude.Float64())
	assert.True(t, bikes[1].IsInUse)
}

// TestClient_ListBikes_Unauthorized tests the list status mapping
func TestClient_ListBikes_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, "")

	_, err := c.ListBikes(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

// TestClient_LoginLogout tests that login stores the token and logout drops it
func TestClient_LoginLogout(t *testing.T) {
	var logoutAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/login/":
			var req loginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.Username != "rider" || req.Password != "secret" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = io.WriteString(w, `{"token": "fresh"}`)
		case "/users/logout/":
			logoutAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, "")

	ctx := context.Background()
	assert.ErrorIs(t, c.Login(ctx, "rider", "wrong"), ErrUnauthenticated)
	assert.False(t, c.Tokens().Present())

	require.NoError(t, c.Login(ctx, "rider", "secret"))
	assert.Equal(t, "fresh", c.Tokens().Get())

	require.NoError(t, c.Logout(ctx))
	assert.Equal(t, "Token fresh", logoutAuth)
	assert.False(t, c.Tokens().Present())
}

// TestClient_LoginMissingToken tests a login response without a token
func TestClient_LoginMissingToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}, "")

	assert.ErrorIs(t, c.Login(context.Background(), "rider", "secret"), ErrMissingToken)
}

// TestClient_LogoutClearsTokenOnFailure tests that the local token is dropped even if the server is unreachable
func TestClient_LogoutClearsTokenOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := New(Config{BaseURL: srv.URL}, NewTokenStore("abc"), logger.NewNop())
	srv.Close()

	assert.Error(t, c.Logout(context.Background()))
	assert.False(t, c.Tokens().Present())
}

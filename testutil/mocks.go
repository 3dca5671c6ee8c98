package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
)

// MockSteamServer serves canned Steam Web API and store responses.
// It answers both the API and the store base URL, so a steam.Client can point
// APIBase and StoreBase at URL.
type MockSteamServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
	// Requests counts every request, matched or not.
	Requests atomic.Int64
}

// NewMockSteamServer creates a new mock Steam server
func NewMockSteamServer(t *testing.T) *MockSteamServer {
	t.Helper()
	m := &MockSteamServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Requests.Add(1)
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockAppList adds a handler for the GetAppList endpoint returning apps (id -> name).
func (m *MockSteamServer) MockAppList(apps map[uint32]string) {
	m.Handlers["/ISteamApps/GetAppList/v2/"] = func(w http.ResponseWriter, r *http.Request) {
		list := make([]map[string]any, 0, len(apps))
		for id, name := range apps {
			list = append(list, map[string]any{"appid": id, "name": name})
		}
		response := map[string]any{"applist": map[string]any{"apps": list}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockAppDetails adds a handler for /api/appdetails. Unknown app ids get the
// store's {"success":false} answer.
func (m *MockSteamServer) MockAppDetails(details map[uint32]map[string]any) {
	m.Handlers["/api/appdetails"] = func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("appids")
		id, _ := strconv.ParseUint(key, 10, 32)
		entry := map[string]any{"success": false}
		if data, ok := details[uint32(id)]; ok {
			entry = map[string]any{"success": true, "data": data}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{key: entry}) //nolint:errcheck // test mock response
	}
}

// MockStatus makes path answer with status and an empty body.
func (m *MockSteamServer) MockStatus(path string, status int) {
	m.Handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, fmt.Sprintf("mock status %d", status), status)
	}
}

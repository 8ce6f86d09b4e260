package http

import (
	stdhttp "net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/tunesync-server/internal/auth"
	"github.com/vovakirdan/tunesync-server/internal/config"
	"github.com/vovakirdan/tunesync-server/internal/core"
	"github.com/vovakirdan/tunesync-server/internal/store/sqlite"
)

// newTestServer wires a full stack over an in-memory SQLite store and
// returns the HTTP handler plus the deps for direct service access.
func newTestServer(t *testing.T) (stdhttp.Handler, Deps) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.New(nil)
	hub := core.NewHub()
	dispatch := core.NewDispatcher(st, hub, &logger)

	deps := Deps{
		Hub:      hub,
		Sessions: core.NewSessionManager(st, hub, dispatch, &logger),
		Queue:    core.NewQueueEngine(st, dispatch, &logger),
		Chat:     core.NewChatRelay(st, hub, &logger),
		Dispatch: dispatch,
		Store:    st,
		JWT: &auth.JWTConfig{
			Secret:   []byte("test-secret"),
			Issuer:   "test",
			Audience: "test",
			TTL:      time.Hour,
		},
	}

	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	server := NewServer(deps, &cfg, &logger)
	return server.Handler, deps
}

// testToken signs a listener token against the test JWT config.
func testToken(t *testing.T, deps Deps, listener string) string {
	t.Helper()

	token, err := auth.GenerateToken(deps.JWT, listener)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}

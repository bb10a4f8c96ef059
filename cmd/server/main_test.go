package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"foodhub/auth"
	"foodhub/catalog"
	"foodhub/config"
	"foodhub/database"
	"foodhub/fixtures"
	"foodhub/handlers"
	"foodhub/models"
	"foodhub/resolver"
	"foodhub/uploads"
	"foodhub/worker"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "memory")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "json")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandTree(t *testing.T) {
	cmd := newRootCommand()
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"serve", "seed", "reconcile"})
	assert.NotNil(t, cmd.RunE)

	reconcile, _, err := cmd.Find([]string{"reconcile"})
	require.NoError(t, err)
	for _, flag := range []string{"dry-run", "prune-categories", "concurrency", "lock-file"} {
		assert.NotNil(t, reconcile.Flags().Lookup(flag), flag)
	}
}

func TestSeedCommand(t *testing.T) {
	out, err := runCommand(t, "seed", "--reset")
	require.NoError(t, err)
	assert.Contains(t, out, "memory")
	assert.Contains(t, strings.ToUpper(out), "RESTAURANTS")
}

func TestReconcileCommandDryRun(t *testing.T) {
	lock := filepath.Join(t.TempDir(), "reconcile.lock")
	out, err := runCommand(t, "reconcile", "--dry-run", "--lock-file", lock)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "0 restaurant(s) checked, would repair 0"), out)
}

func TestInvalidConfigFails(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	_, err := runCommand(t, "seed")
	assert.ErrorContains(t, err, "not a valid TCP port")
}

func testHandler(t *testing.T) http.Handler {
	t.Helper()
	store := database.NewMemory()
	log := zap.NewNop()
	disk, err := uploads.NewDisk(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}
	return newHandler(cfg, &handlers.Deps{
		Catalog:      catalog.NewService(store, resolver.New(fixtures.Default()), log),
		Accounts:     auth.NewAccounts(store.Vendors, auth.NewTokens("test-secret", time.Hour), log),
		Uploads:      disk,
		Files:        disk.Handler(),
		Log:          log,
		MaxBodyBytes: 1 << 20,
	})
}

func TestCORSAllowList(t *testing.T) {
	h := testHandler(t)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/restaurants", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("http://localhost:5173")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = preflight("http://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnreachableStoreDegradesToSeededMemory(t *testing.T) {
	for name, url := range map[string]string{
		"unsupported scheme": "redis://cache:6379",
		"unreachable":        "postgres://foodhub@127.0.0.1:1/foodhub?sslmode=disable",
	} {
		t.Run(name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", url)
			t.Setenv("DB_CONNECT_TIMEOUT", "2s")
			cfg, err := config.Load("")
			require.NoError(t, err)
			cc := &commandContext{cfg: cfg, log: zap.NewNop()}

			table := fixtures.Default()
			ctx := context.Background()
			store, svc, err := connectOrDegrade(ctx, cc, table, resolver.New(table))
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close(context.Background()) })

			assert.Equal(t, "memory", store.Backend)
			n, err := store.Restaurants.Count(ctx, models.Query{})
			require.NoError(t, err)
			assert.EqualValues(t, table.Len(), n)

			r, err := svc.FindRestaurant(ctx, "1")
			require.NoError(t, err)
			assert.Equal(t, "Paradise Biryani", r.Name)
		})
	}
}

func TestPrintReportTable(t *testing.T) {
	var out bytes.Buffer
	printReport(&out, worker.Report{
		Restaurants: 3,
		Repairs: []worker.Repair{{
			Restaurant:      primitive.NewObjectID(),
			Name:            "Cafe Bahar",
			UpgradedRefs:    2,
			AddedItems:      1,
			AddedCategories: []string{"Biryani", "Starters"},
		}},
	})

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "3 restaurant(s) checked, repaired 1\n"), got)
	assert.Contains(t, got, "Cafe Bahar")
	assert.Contains(t, got, "Biryani, Starters")
	assert.Contains(t, strings.ToUpper(got), "+CATEGORIES")
}

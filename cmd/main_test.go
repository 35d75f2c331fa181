package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/herobot/internal/config"
	"github.com/okian/herobot/internal/domain/catalog"
	"github.com/okian/herobot/pkg/logger"
)

const catalogBody = `[{"id":1,"localized_name":"Anti-Mage"},{"id":2,"localized_name":"Axe"},{"id":5,"localized_name":"Crystal Maiden"}]`

func newCatalogServer(status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, catalogBody)
	}))
}

// newStatsServer answers every query with a hero stats payload for Axe.
func newStatsServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"constants":{"hero":{"stats":{
			"attackType":"Melee","startingArmor":-1,"startingDamageMin":27,"startingDamageMax":31,
			"attackRate":1.7,"attackRange":150,"primaryAttribute":"str",
			"strengthBase":25,"strengthGain":2.8,"intelligenceBase":18,"intelligenceGain":1.6,
			"agilityBase":20,"agilityGain":1.7,"hpRegen":2.5,"mpRegen":0,
			"moveSpeed":310,"moveTurnRate":0.6}}}}}`)
	}))
}

func testConfig(catalogURL, statsURL string) *config.Config {
	cfg := config.New()
	cfg.CatalogURL = catalogURL
	cfg.StatsEndpoint = statsURL
	cfg.StatsToken = "secret"
	cfg.WorkerCount = 2
	cfg.QueueSize = 10
	cfg.HTTPTimeout = 2 * time.Second
	return cfg
}

func TestNewService(t *testing.T) {
	convey.Convey("Given a catalog and a stats endpoint", t, func() {
		ctx := context.Background()
		cat := newCatalogServer(http.StatusOK)
		defer cat.Close()
		stats := newStatsServer()
		defer stats.Close()

		convey.Convey("When the service is built and served", func() {
			svc, err := newService(ctx, testConfig(cat.URL, stats.URL), logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			handler := newHTTPServer(":0", svc).Handler

			convey.Convey("Then search should use the fetched catalog", func() {
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/heroes?q=maiden", nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "Crystal Maiden")
			})

			convey.Convey("Then stats should flow through the stats client", func() {
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/heroes/axe/stats", nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

				var report map[string]any
				convey.So(json.NewDecoder(w.Body).Decode(&report), convey.ShouldBeNil)
				convey.So(report["hero"].(map[string]any)["name"], convey.ShouldEqual, "Axe")
			})

			convey.Convey("Then commands should be accepted", func() {
				w := httptest.NewRecorder()
				body := strings.NewReader(`{"command_id":"m-1","name":"herostats","hero":"axe"}`)
				handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/commands", body))
				convey.So(w.Code, convey.ShouldEqual, http.StatusAccepted)
			})
		})

		convey.Convey("When the fuzzy threshold is configured", func() {
			loose, err := newService(ctx, testConfig(cat.URL, stats.URL), logger.Nop())
			convey.So(err, convey.ShouldBeNil)

			cfg := testConfig(cat.URL, stats.URL)
			cfg.FuzzyThreshold = 0.95
			strict, err := newService(ctx, cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then it should reach the hero index", func() {
				convey.So(loose.Search("maidn"), convey.ShouldNotBeEmpty)
				convey.So(strict.Search("maidn"), convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When a webhook is configured", func() {
			cfg := testConfig(cat.URL, stats.URL)
			cfg.WebhookURL = "http://127.0.0.1:1/hook"
			svc, err := newService(ctx, cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc, convey.ShouldNotBeNil)
		})

		convey.Convey("When the catalog is unavailable", func() {
			broken := newCatalogServer(http.StatusServiceUnavailable)
			defer broken.Close()

			_, err := newService(ctx, testConfig(broken.URL, stats.URL), logger.Nop())
			convey.So(errors.Is(err, catalog.ErrFetch), convey.ShouldBeTrue)
		})

		convey.Convey("When the token is missing", func() {
			cfg := testConfig(cat.URL, stats.URL)
			cfg.StatsToken = ""
			_, err := newService(ctx, cfg, logger.Nop())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given an environment without a stats token", t, func() {
		t.Setenv("HEROBOT_STATS_TOKEN", "")
		convey.So(logger.Init(), convey.ShouldBeNil)

		convey.Convey("Then run should refuse to start", func() {
			err := run(context.Background())
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a complete environment", t, func() {
		cat := newCatalogServer(http.StatusOK)
		defer cat.Close()
		stats := newStatsServer()
		defer stats.Close()
		t.Setenv("HEROBOT_STATS_TOKEN", "secret")
		t.Setenv("HEROBOT_STATS_ENDPOINT", stats.URL)
		t.Setenv("HEROBOT_CATALOG_URL", cat.URL)
		t.Setenv("HEROBOT_ADDR", "127.0.0.1:0")
		convey.So(logger.InitWithWriter(io.Discard, logger.FormatText), convey.ShouldBeNil)

		convey.Convey("Then run should serve until the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			convey.So(run(ctx), convey.ShouldBeNil)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the background updaters", t, func() {
		convey.Convey("Then a system metrics update should not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the updater should stop with its context", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("system metrics updater did not stop")
			}
		})
	})
}

package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/herobot/internal/cli"
)

// fakeAPI answers like the herobot server for the hero Axe and dedupes
// submitted command ids.
type fakeAPI struct {
	mu    sync.Mutex
	seen  map[string]bool
	paths []string
	full  bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.EscapedPath())
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.EscapedPath() {
	case "/heroes":
		if r.URL.Query().Get("q") == "zzz" {
			_, _ = io.WriteString(w, `{"query":"zzz","results":[]}`)
			return
		}
		_, _ = io.WriteString(w, `{"query":"a","results":[{"id":1,"name":"Anti-Mage"},{"id":2,"name":"Axe"}]}`)
	case "/heroes/axe/winrate":
		_, _ = io.WriteString(w, `{"hero":{"id":2,"name":"Axe"},"periods":4,"wins":200,"matches":400,"win_rate_percent":50}`)
	case "/heroes/crystal%20maiden/matchups":
		_, _ = io.WriteString(w, `{"hero":{"id":5,"name":"Crystal Maiden"},
			"best_with":{"label":"Best with","entries":[{"hero_id":2,"name":"Axe","win_share_percent":55.5}]},
			"best_against":{"label":"Best against","entries":[]},
			"worst_against":{"label":"Worst against","entries":[]}}`)
	case "/heroes/id/2/stats":
		_, _ = io.WriteString(w, `{"hero":{"id":2,"name":"Axe"},"stats":{"attack_type":"Melee","strength_base":25}}`)
	case "/commands":
		var req cli.CommandRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.full {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"code":"backpressure","message":"api.post_command: backpressure"}`)
			return
		}
		if f.seen == nil {
			f.seen = map[string]bool{}
		}
		if req.CommandID == "" {
			req.CommandID = "generated"
		}
		if f.seen[req.CommandID] {
			_, _ = io.WriteString(w, `{"command_id":"`+req.CommandID+`","status":"duplicate","duplicate":true}`)
			return
		}
		f.seen[req.CommandID] = true
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"command_id":"`+req.CommandID+`","status":"accepted","duplicate":false}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":"not_found","message":"hero not found"}`)
	}
}

func execute(srv *httptest.Server, args ...string) (string, error) {
	var out bytes.Buffer
	root := cli.NewRootCommand()
	root.SetOut(&out)
	root.SetArgs(append([]string{"--url", srv.URL, "--timeout", "2s"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestClient(t *testing.T) {
	Convey("Given a client for a running server", t, func() {
		api := &fakeAPI{}
		srv := httptest.NewServer(api)
		defer srv.Close()
		c := cli.NewClient(srv.URL+"/", time.Second)
		ctx := context.Background()

		Convey("When searching", func() {
			found, err := c.Search(ctx, "a", 2)
			So(err, ShouldBeNil)
			So(found, ShouldHaveLength, 2)
			So(found[1].Name, ShouldEqual, "Axe")
		})

		Convey("When a hero name needs escaping", func() {
			r, err := c.Matchups(ctx, "crystal maiden")
			So(err, ShouldBeNil)
			So(r.BestWith.Entries[0].Name, ShouldEqual, "Axe")
			So(api.paths, ShouldContain, "/heroes/crystal%20maiden/matchups")
		})

		Convey("When the server answers with an error", func() {
			_, err := c.WinRate(ctx, "nobody")

			Convey("Then it should surface as an APIError", func() {
				var apiErr *cli.APIError
				So(errors.As(err, &apiErr), ShouldBeTrue)
				So(apiErr.Status, ShouldEqual, http.StatusNotFound)
				So(apiErr.Code, ShouldEqual, "not_found")
			})
		})

		Convey("When the server is unreachable", func() {
			srv.Close()
			_, err := c.HeroStatsByID(ctx, 2)
			So(errors.Is(err, cli.ErrRequest), ShouldBeTrue)
		})
	})
}

func TestSubmitLoad(t *testing.T) {
	Convey("Given a batch with repeated ids", t, func() {
		api := &fakeAPI{}
		srv := httptest.NewServer(api)
		defer srv.Close()

		cmds := cli.Batch("winrate", []string{"axe", "bane"}, 10, true)
		So(cmds, ShouldHaveLength, 10)
		So(cmds[0].CommandID, ShouldEqual, cmds[1].CommandID)
		So(cmds[0].Hero, ShouldEqual, "axe")
		So(cmds[2].Hero, ShouldEqual, "bane")

		Convey("When it is submitted concurrently", func() {
			stats := cli.SubmitLoad(context.Background(), cli.NewClient(srv.URL, time.Second), cmds, 4)

			Convey("Then every id should be accepted exactly once", func() {
				So(stats.Submitted, ShouldEqual, 10)
				So(stats.Accepted, ShouldEqual, 5)
				So(stats.Duplicate, ShouldEqual, 5)
				So(stats.Failed, ShouldEqual, 0)
			})
		})

		Convey("When the server is saturated", func() {
			api.full = true
			stats := cli.SubmitLoad(context.Background(), cli.NewClient(srv.URL, time.Second), cmds, 2)
			So(stats.Rejected, ShouldEqual, 10)
		})
	})

	Convey("Given degenerate batch input", t, func() {
		So(cli.Batch("winrate", nil, 5, false), ShouldBeEmpty)
		So(cli.Batch("winrate", []string{"axe"}, 0, false), ShouldBeEmpty)
	})
}

func TestCommands(t *testing.T) {
	Convey("Given the command tree against a server", t, func() {
		srv := httptest.NewServer(&fakeAPI{})
		defer srv.Close()

		Convey("When running search", func() {
			out, err := execute(srv, "search", "a")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "Anti-Mage (1)")
		})

		Convey("When running winrate", func() {
			out, err := execute(srv, "winrate", "axe")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "50.00%")
		})

		Convey("When running matchup with a multi-word hero", func() {
			out, err := execute(srv, "matchup", "crystal", "maiden")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "**Crystal Maiden** matchups")
			So(out, ShouldContainSubstring, "1. Axe 55.50%")
		})

		Convey("When running stats-id with JSON output", func() {
			out, err := execute(srv, "--json", "stats-id", "2")
			So(err, ShouldBeNil)
			var r map[string]any
			So(json.Unmarshal([]byte(out), &r), ShouldBeNil)
			So(r["hero"].(map[string]any)["name"], ShouldEqual, "Axe")
		})

		Convey("When submitting one command", func() {
			out, err := execute(srv, "submit", "matchup", "axe", "--id", "c-1")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "c-1 accepted")
		})

		Convey("When submitting a batch", func() {
			out, err := execute(srv, "submit", "winrate", "axe", "--count", "6", "--repeat")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "accepted 3, duplicate 3")
		})

		Convey("When the input is invalid", func() {
			_, err := execute(srv, "stats-id", "300")
			So(err, ShouldNotBeNil)
			_, err = execute(srv, "submit", "dance", "axe")
			So(err, ShouldNotBeNil)
			_, err = execute(srv, "winrate", "nobody")
			So(err, ShouldNotBeNil)
		})
	})
}

package service_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/okian/herobot/internal/adapters/stratz"
	"github.com/okian/herobot/internal/domain/catalog"
	"github.com/okian/herobot/internal/domain/types"
)

var heroes = []types.Entity{
	{ID: 1, Name: "Anti-Mage"},
	{ID: 2, Name: "Axe"},
	{ID: 3, Name: "Bane"},
	{ID: 4, Name: "Bloodseeker"},
	{ID: 5, Name: "Crystal Maiden"},
	{ID: 6, Name: "Drow Ranger"},
	{ID: 7, Name: "Earthshaker"},
	{ID: 8, Name: "Juggernaut"},
}

const (
	matchupsBody = `{"data":{"heroStats":{"matchUp":[{
		"with":[{"heroId2":3,"winsAverage":0.50},{"heroId2":4,"winsAverage":0.52},{"heroId2":5,"winsAverage":0.56},
		        {"heroId2":6,"winsAverage":0.49},{"heroId2":7,"winsAverage":0.58},{"heroId2":8,"winsAverage":0.52}],
		"vs":[{"heroId2":1,"winsAverage":0.51},{"heroId2":3,"winsAverage":0.47}]}]}}}`
	disadvantageBody = `{"data":{"heroStats":{"matchUp":[{
		"with":[],
		"vs":[{"heroId2":8,"winsAverage":0.44},{"heroId2":6,"winsAverage":0.40},{"heroId2":5,"winsAverage":0.46}]}]}}}`
	winWeekBody   = `{"data":{"heroStats":{"winWeek":[{"winCount":10,"matchCount":20},{"winCount":30,"matchCount":60},{"winCount":5,"matchCount":10},{"winCount":5,"matchCount":10},{"winCount":100,"matchCount":100}]}}}`
	heroStatsBody = `{"data":{"constants":{"hero":{"stats":{
		"attackType":"Melee","startingArmor":-1,"startingDamageMin":29,"startingDamageMax":33,
		"attackRate":1.7,"attackRange":150,"primaryAttribute":"str",
		"strengthBase":25,"strengthGain":2.8,"intelligenceBase":18,"intelligenceGain":1.6,
		"agilityBase":20,"agilityGain":1.7,"hpRegen":2.75,"mpRegen":0,"moveSpeed":310,"moveTurnRate":0.6}}}}}`
)

// fakeStats answers each query document with a canned body and counts hits.
type fakeStats struct {
	srv    *httptest.Server
	hits   atomic.Int32
	mu     sync.Mutex
	bodies map[string]string
	status int
	ids    []float64
}

func newFakeStats() *fakeStats {
	f := &fakeStats{
		status: http.StatusOK,
		bodies: map[string]string{
			stratz.MatchupsQuery.Name:     matchupsBody,
			stratz.DisadvantageQuery.Name: disadvantageBody,
			stratz.WinWeekQuery.Name:      winWeekBody,
			stratz.HeroStatsQuery.Name:    heroStatsBody,
		},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

func (f *fakeStats) serve(w http.ResponseWriter, r *http.Request) {
	f.hits.Add(1)
	raw, _ := io.ReadAll(r.Body)
	var req struct {
		Query     string             `json:"query"`
		Variables map[string]float64 `json:"variables"`
	}
	_ = json.Unmarshal(raw, &req)

	f.mu.Lock()
	f.ids = append(f.ids, req.Variables["id"])
	status := f.status
	body := ""
	for _, q := range []struct{ name, doc string }{
		{stratz.MatchupsQuery.Name, stratz.MatchupsQuery.Document},
		{stratz.DisadvantageQuery.Name, stratz.DisadvantageQuery.Document},
		{stratz.WinWeekQuery.Name, stratz.WinWeekQuery.Document},
		{stratz.HeroStatsQuery.Name, stratz.HeroStatsQuery.Document},
	} {
		if strings.TrimSpace(req.Query) == strings.TrimSpace(q.doc) {
			body = f.bodies[q.name]
		}
	}
	f.mu.Unlock()

	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (f *fakeStats) set(query, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[query] = body
}

func (f *fakeStats) fail(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *fakeStats) client() *stratz.Client {
	c, err := stratz.New(f.srv.URL, "test-token", stratz.WithHTTPClient(f.srv.Client()))
	if err != nil {
		panic(err)
	}
	return c
}

func (f *fakeStats) seenIDs() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.ids...)
}

func (f *fakeStats) close() { f.srv.Close() }

func buildIndex() *catalog.Index {
	idx, err := catalog.Build(heroes)
	if err != nil {
		panic(err)
	}
	return idx
}

package tablecast_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"

	"github.com/aretw0/tablecast"
	"github.com/aretw0/tablecast/internal/testutil"
	"github.com/aretw0/tablecast/pkg/config"
	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/strategy/httpprobe"
)

// ExampleNew renders a table through an HTTP endpoint, the first strategy tried by
// the default configuration. Here a local server stands in for the table service.
func ExampleNew() {
	// 1. A fake table service answering one undocumented endpoint.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/table" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(testutil.PNG(480, 240))
	}))
	defer srv.Close()

	// 2. Point the HTTP strategy at it and keep only that strategy.
	cfg := config.Default()
	cfg.Strategies = []config.StrategyConfig{{
		Name:    "http-api",
		Type:    config.TypeHTTP,
		Timeout: config.DefaultStrategies()[0].Timeout,
		HTTP: httpprobe.Config{
			BaseURL:    srv.URL,
			Candidates: httpprobe.DefaultCandidates(),
		},
	}}

	r, err := tablecast.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	// 3. Render. Text straight from a chat command works too.
	res, err := r.Render(context.Background(), "/maketable\nA - Red\nAlice 1500\nBob 1400")
	var failure *domain.Failure
	switch {
	case errors.As(err, &failure):
		fmt.Println(failure.Summary())
	case err != nil:
		log.Fatal(err)
	default:
		fmt.Println("rendered by", res.Strategy)
	}

	// Output:
	// rendered by http-api
}

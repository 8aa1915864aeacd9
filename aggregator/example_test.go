package aggregator_test

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"

	"listings-aggregator-api/aggregator"
)

func Example() {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"listings":[{"id":"1","address":"1 Elm","city":"Austin","price":500000}]}`))
	}))
	defer upstream.Close()

	client, err := aggregator.NewClient(
		aggregator.WithSources(aggregator.Source{Name: "local", URL: upstream.URL}),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	summary, err := client.Refresh(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(summary.Sources["local"].Kind, summary.Sources["local"].Created)

	listings, err := client.Search(context.Background(), aggregator.Criteria{"max_price": "600000"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(len(listings), listings[0].Address)
	// Output:
	// ok 1
	// 1 1 Elm
}

package listing

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"listings-aggregator-api/core/domain"
)

func benchBody(n int) string {
	var b strings.Builder
	b.WriteString(`{"listings":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"id":"%d","address":"%d Main St","city":"Austin","price":%d,"bedrooms":%d}`, i, i, 300000+i*1000, 1+i%5)
	}
	b.WriteString(`]}`)
	return b.String()
}

func BenchmarkFetchAndReconcileAll(b *testing.B) {
	body := benchBody(200)
	routes := map[string]routeFunc{}
	var sources []domain.Source
	for i := 0; i < 4; i++ {
		name := fmt.Sprintf("s%d", i)
		routes[name+".example.com"] = respond(200, body)
		sources = append(sources, source(name))
	}
	f := newFixture(b, routes, sources, nil)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		summary := f.svc.FetchAndReconcileAll(ctx)
		if !summary.AnySucceeded() {
			b.Fatal("refresh failed")
		}
	}
}

func BenchmarkSearch(b *testing.B) {
	f := newFixture(b, map[string]routeFunc{"a.example.com": respond(200, benchBody(1000))}, []domain.Source{source("a")}, nil)
	ctx := context.Background()
	f.svc.FetchAndReconcileAll(ctx)
	criteria := map[string]string{"city": "austin", "min_bedrooms": "3", "max_price": "800000"}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := f.svc.Search(ctx, criteria); err != nil {
				b.Fatal(err)
			}
		}
	})
}

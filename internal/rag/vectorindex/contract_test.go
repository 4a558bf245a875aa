package vectorindex

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

// checkBackendContract runs the behaviour every backend must share against
// idx, which accepts 2-dimensional vectors. Tenant keys are random so a
// shared remote store can be reused between runs.
func checkBackendContract(t *testing.T, idx *Index) {
	t.Helper()
	ctx := context.Background()
	fresh := func(name string) TenantKey {
		return mustTenant(t, "sa-"+name+"-"+uuid.NewString())
	}

	t.Run("tenant isolation", func(t *testing.T) {
		a, b := fresh("a"), fresh("b")
		if err := idx.Upsert(ctx, a, []Record{
			{Vector: []float32{1, 0}, Text: "a-one", Source: "a.pdf"},
			{Vector: []float32{0.9, 0.1}, Text: "a-two", Source: "a.pdf"},
		}); err != nil {
			t.Fatalf("Upsert a: %v", err)
		}
		if err := idx.Upsert(ctx, b, []Record{
			{Vector: []float32{1, 0}, Text: "b-one", Source: "https://b.example"},
		}); err != nil {
			t.Fatalf("Upsert b: %v", err)
		}

		matches, err := idx.Query(ctx, b, []float32{1, 0}, 10)
		if err != nil {
			t.Fatalf("Query b: %v", err)
		}
		if len(matches) != 1 || matches[0].Text != "b-one" || matches[0].Source != "https://b.example" {
			t.Fatalf("tenant b saw %+v, want only b-one", matches)
		}

		matches, err = idx.Query(ctx, a, []float32{1, 0}, 10)
		if err != nil {
			t.Fatalf("Query a: %v", err)
		}
		if len(matches) != 2 {
			t.Fatalf("tenant a got %d matches, want 2", len(matches))
		}
		for _, m := range matches {
			if m.Source != "a.pdf" {
				t.Errorf("tenant a received foreign match %+v", m)
			}
		}

		if matches, _ := idx.Query(ctx, fresh("empty"), []float32{1, 0}, 10); len(matches) != 0 {
			t.Errorf("unknown tenant got %d matches", len(matches))
		}
	})

	t.Run("cosine ordering and limit", func(t *testing.T) {
		tenant := fresh("order")
		if err := idx.Upsert(ctx, tenant, []Record{
			{Vector: []float32{0, 1}, Text: "far"},
			{Vector: []float32{1, 0}, Text: "exact"},
			{Vector: []float32{0.7, 0.7}, Text: "middle"},
			{Vector: []float32{-1, 0}, Text: "opposite"},
		}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}

		matches, err := idx.Query(ctx, tenant, []float32{1, 0}, 3)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		want := []string{"exact", "middle", "far"}
		if len(matches) != len(want) {
			t.Fatalf("expected %d matches, got %d", len(want), len(matches))
		}
		for i, w := range want {
			if matches[i].Text != w {
				t.Errorf("match %d = %q, want %q", i, matches[i].Text, w)
			}
		}
		if matches[0].Score < 0.99 {
			t.Errorf("exact match scored %v, want ~1", matches[0].Score)
		}
		for i := 1; i < len(matches); i++ {
			if matches[i].Score > matches[i-1].Score {
				t.Errorf("scores not descending at %d: %v > %v", i, matches[i].Score, matches[i-1].Score)
			}
		}
	})

	t.Run("delete all purges one tenant and is idempotent", func(t *testing.T) {
		gone, kept := fresh("gone"), fresh("kept")
		if err := idx.Upsert(ctx, gone, []Record{{Vector: []float32{1, 0}, Text: "x"}}); err != nil {
			t.Fatalf("Upsert gone: %v", err)
		}
		if err := idx.Upsert(ctx, kept, []Record{{Vector: []float32{1, 0}, Text: "y"}}); err != nil {
			t.Fatalf("Upsert kept: %v", err)
		}

		for i := 0; i < 2; i++ {
			if err := idx.DeleteAll(ctx, gone); err != nil {
				t.Fatalf("DeleteAll call %d: %v", i+1, err)
			}
		}
		if err := idx.DeleteAll(ctx, fresh("never-written")); err != nil {
			t.Errorf("DeleteAll on empty tenant: %v", err)
		}

		matches, err := idx.Query(ctx, gone, []float32{1, 0}, 5)
		if err != nil {
			t.Fatalf("Query after delete: %v", err)
		}
		if len(matches) != 0 {
			t.Errorf("expected no matches after purge, got %d", len(matches))
		}
		if matches, _ := idx.Query(ctx, kept, []float32{1, 0}, 5); len(matches) != 1 {
			t.Errorf("other tenant lost data: %d matches", len(matches))
		}
	})
}

func TestMemoryBackendContract(t *testing.T) {
	checkBackendContract(t, NewMemory(2, nil))
}

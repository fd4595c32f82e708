package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NelliaS/junior.guru/internal/club"
)

func TestRegistryResolveFirstWriterWins(t *testing.T) {
	t.Parallel()

	r := New()

	first, created := r.Resolve("42", func() *club.User {
		return &club.User{ID: "42", DisplayName: "Honza"}
	})
	require.True(t, created)
	require.Equal(t, "Honza", first.DisplayName)

	second, created := r.Resolve("42", func() *club.User {
		t.Fatal("factory must not run for a known id")
		return nil
	})
	require.False(t, created)
	require.Same(t, first, second)
	require.Equal(t, 1, r.Len())
}

func TestRegistryResolveConcurrent(t *testing.T) {
	t.Parallel()

	r := New()
	const goroutines = 32
	const ids = 5

	var factoryCalls sync.Map
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < ids; i++ {
				id := fmt.Sprintf("user-%d", i)
				r.Resolve(id, func() *club.User {
					count, _ := factoryCalls.LoadOrStore(id, new(int))
					*count.(*int)++
					return &club.User{ID: id}
				})
			}
		}(g)
	}
	wg.Wait()

	require.Equal(t, ids, r.Len())
	factoryCalls.Range(func(_, count any) bool {
		require.Equal(t, 1, *count.(*int))
		return true
	})
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	t.Parallel()

	r := New()
	r.Resolve("1", func() *club.User { return &club.User{ID: "1"} })

	snapshot := r.Snapshot()
	require.Len(t, snapshot, 1)

	snapshot["2"] = &club.User{ID: "2"}
	require.Equal(t, 1, r.Len())
}

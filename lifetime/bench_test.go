package lifetime

import (
	"testing"
	"time"
)

// BenchmarkRegistry_Resolve measures profile lookup.
func BenchmarkRegistry_Resolve(b *testing.B) {
	reg := NewRegistry()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = reg.Resolve("hours")
	}
}

// BenchmarkRegistry_Resolve_Concurrent measures concurrent profile lookup.
func BenchmarkRegistry_Resolve_Concurrent(b *testing.B) {
	reg := NewRegistry()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = reg.Resolve("hours")
		}
	})
}

// BenchmarkProfile_Windows measures window computation.
func BenchmarkProfile_Windows(b *testing.B) {
	p := Profile{Stale: time.Minute, Expire: time.Hour}
	created := time.Now()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.StaleAt(created)
		_ = p.ExpireAt(created)
	}
}

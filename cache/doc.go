// Package cache provides a tag-indexed content cache with staged
// invalidation.
//
// Entries are computed through single-flight GetOrCompute calls, carry
// tags for group invalidation, and age through lifetime profiles:
// fresh entries serve directly, stale entries serve while one
// background recomputation runs, invalidated entries block the next
// reader. UpdateTag discards by tag immediately; RevalidateTag marks
// by tag for stale-while-revalidate. SHA-256-based key derivation and
// explicit function wrapping are included.
package cache

// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

/*
Package cache stores generated recommendation results per user.

Each user has at most one entry which moves through

	absent -> fresh -> stale -> absent

A fresh entry is served until its ExpiresAt. Invalidate forces staleness
immediately; the next request recomputes.

# Backends

  - memory: bounded map with an expiry heap. When full, the entry closest to
    expiry is evicted. Stale entries are removed by Sweep, which the
    supervisor's cache janitor calls every sweep_interval.
  - badger: embedded persistent store. Entries carry a native TTL and
    Invalidate deletes them.
  - redis: shared across replicas under the key recommendations:{user_id}.

Open wraps every backend in a ResilientStore (one short retry and a circuit
breaker). The engine logs and counts cache errors and treats them as misses,
so an unavailable cache never fails a request.

# Deduplication

Deduper is a small LRU with TTL used by the interaction event consumer to
ignore redelivered events.
*/
package cache

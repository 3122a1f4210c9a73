// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

/*
Package candidates builds the unranked candidate pool for a user.

Generation runs in four steps:

 1. Fan-out: every registered embedding source retrieves its top-N articles
    concurrently under a retrieval timeout. Sources that fail or time out
    contribute nothing and are counted in metrics.
 2. Merge: one candidate per article. The highest raw score names the
    source model and every per-model score is kept for feature fusion.
 3. Filter: excluded IDs, articles missing from the article store,
    unpublished articles and articles outside the category filter are
    dropped.
 4. Trending fill: when the pool is smaller than the minimum pool size,
    recent trending articles fill the deficit. Trending candidates carry
    source "trending" and a raw score of 0 and follow the embedding
    candidates.

The result is truncated to the requested pool cap in deterministic order.
*/
package candidates

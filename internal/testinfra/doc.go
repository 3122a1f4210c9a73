// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

// Package testinfra provides test infrastructure for integration testing with containers.
//
// This package uses testcontainers-go to start the external services recserve
// talks to in production: PostgreSQL for the news platform tables, Redis for
// the shared result cache and NATS JetStream for interaction events.
//
// Every file is behind the integration build tag:
//
//	go test -tags integration ./...
//
// # PostgreSQL
//
//	func TestStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg.Container)
//
//	    cfg := postgres.DefaultConfig()
//	    cfg.Host, cfg.Port = pg.Host, pg.Port
//	    cfg.User, cfg.Password, cfg.Database = pg.User, pg.Password, pg.Database
//	}
//
// # Redis and NATS
//
// NewRedisContainer returns an Addr for cache.RedisConfig. NewNATSContainer
// starts nats-server with JetStream enabled and returns a URL for
// eventprocessor.Config.
package testinfra

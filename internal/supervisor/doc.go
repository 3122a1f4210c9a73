// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

/*
Package supervisor provides process supervision for recserve using suture v4.

Long-running services are organized into three layers for failure isolation:

	RootSupervisor ("recserve")
	├── DataSupervisor ("data-layer")
	│   ├── snapshot-refresher (memory storage with a snapshot dir)
	│   └── cache-sweeper (memory cache backend)
	├── MessagingSupervisor ("messaging-layer")
	│   └── interaction-consumer (if events are enabled)
	└── APISupervisor ("api-layer")
	    └── http-server

A crashing event consumer is restarted with backoff while the API keeps
serving from the cache and stores.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(logger), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewPeriodicService("cache-sweeper", time.Minute, sweep, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second, logger))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

Supervisor events (restarts, backoff, stop timeouts) are logged through
sutureslog.
*/
package supervisor

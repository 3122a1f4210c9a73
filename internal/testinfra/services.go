// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultPostgresImage matches the production news platform database.
	DefaultPostgresImage = "postgres:16-alpine"

	// DefaultRedisImage is the shared result cache image.
	DefaultRedisImage = "redis:7-alpine"

	// DefaultNATSImage is the interaction event broker image.
	DefaultNATSImage = "nats:2.10-alpine"
)

// ContainerOption configures a service container.
type ContainerOption func(*containerConfig)

type containerConfig struct {
	image        string
	startTimeout time.Duration
}

func newContainerConfig(image string, opts []ContainerOption) *containerConfig {
	cfg := &containerConfig{
		image:        image,
		startTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithImage sets a custom Docker image.
func WithImage(image string) ContainerOption {
	return func(c *containerConfig) {
		c.image = image
	}
}

// WithStartTimeout sets the timeout for waiting for the service to start.
func WithStartTimeout(timeout time.Duration) ContainerOption {
	return func(c *containerConfig) {
		c.startTimeout = timeout
	}
}

// PostgresContainer represents a running PostgreSQL container.
type PostgresContainer struct {
	testcontainers.Container
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// NewPostgresContainer starts PostgreSQL with an empty news_platform database.
func NewPostgresContainer(ctx context.Context, opts ...ContainerOption) (*PostgresContainer, error) {
	cfg := newContainerConfig(DefaultPostgresImage, opts)
	pg := &PostgresContainer{
		User:     "recserve",
		Password: "recserve",
		Database: "news_platform",
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pg.User,
			"POSTGRES_PASSWORD": pg.Password,
			"POSTGRES_DB":       pg.Database,
		},
		// The init process restarts the server once, so the ready line
		// appears twice.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, host, port, err := startContainer(ctx, "postgres", req, "5432")
	if err != nil {
		return nil, err
	}
	pg.Container, pg.Host, pg.Port = container, host, port
	return pg, nil
}

// RedisContainer represents a running Redis container.
type RedisContainer struct {
	testcontainers.Container
	Addr string
}

// NewRedisContainer starts a Redis server without persistence.
func NewRedisContainer(ctx context.Context, opts ...ContainerOption) (*RedisContainer, error) {
	cfg := newContainerConfig(DefaultRedisImage, opts)

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{"6379/tcp"},
		Cmd:          []string{"redis-server", "--save", "", "--appendonly", "no"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Ready to accept connections"),
			wait.ForListeningPort("6379/tcp"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, host, port, err := startContainer(ctx, "redis", req, "6379")
	if err != nil {
		return nil, err
	}
	return &RedisContainer{
		Container: container,
		Addr:      fmt.Sprintf("%s:%d", host, port),
	}, nil
}

// NATSContainer represents a running NATS server with JetStream.
type NATSContainer struct {
	testcontainers.Container
	URL string
}

// NewNATSContainer starts nats-server with JetStream enabled.
func NewNATSContainer(ctx context.Context, opts ...ContainerOption) (*NATSContainer, error) {
	cfg := newContainerConfig(DefaultNATSImage, opts)

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{"4222/tcp"},
		Cmd:          []string{"-js"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Server is ready"),
			wait.ForListeningPort("4222/tcp"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, host, port, err := startContainer(ctx, "nats", req, "4222")
	if err != nil {
		return nil, err
	}
	return &NATSContainer{
		Container: container,
		URL:       fmt.Sprintf("nats://%s:%d", host, port),
	}, nil
}

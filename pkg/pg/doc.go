// Package pg owns the PostgreSQL plumbing shared by the pipeline's durable
// components: pooled connections with startup retry, goose migrations, a
// healthcheck closure, and error classification helpers used by the
// notification store and destination registry to detect unique-constraint
// races.
package pg

// Package service holds the relay orchestrators. Each request moves
// through one pass: validate, dispatch downstream, normalize the response.
// No service keeps state across requests except the single-use OAuth
// state entries held in the TTL cache.
package service

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("service")

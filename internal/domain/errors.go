package domain

import (
	"fmt"
	"strings"
)

// Error types for consistent error handling across the BFA.

// ErrValidation indicates required fields are missing or invalid.
// Fields always carries the full list, not just the first one found.
type ErrValidation struct {
	Fields []string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("missing or invalid required fields: %s", strings.Join(e.Fields, ", "))
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in a downstream service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrNotConfigured indicates a required credential or base URL is absent.
type ErrNotConfigured struct {
	Setting string
}

func (e *ErrNotConfigured) Error() string {
	return fmt.Sprintf("service not configured: %s", e.Setting)
}

// ErrInsufficientText indicates neither direct extraction nor OCR produced
// usable text from a document.
type ErrInsufficientText struct {
	Chars int
}

func (e *ErrInsufficientText) Error() string {
	return "não foi possível extrair texto do documento"
}

// ErrXMLNotReady indicates the lote XML has not been generated downstream yet.
type ErrXMLNotReady struct {
	LoteID string
}

func (e *ErrXMLNotReady) Error() string {
	return fmt.Sprintf("XML do lote %s ainda não está disponível", e.LoteID)
}

// ErrInvalidState indicates an OAuth state token that is unknown, expired
// or already consumed.
type ErrInvalidState struct{}

func (e *ErrInvalidState) Error() string {
	return "estado OAuth inválido ou expirado"
}

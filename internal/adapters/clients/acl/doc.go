// Package acl is the anti-corruption layer between remote quote servers and
// the domain.
//
// External payloads are decoded into unexported DTOs inside this package and
// translated into domain types before they leave it. HTTP failures are
// mapped onto domain errors:
//
//   - 404 → [domain.ErrNotFound]
//   - 409 → [domain.ErrConflict]
//   - 400/422 → [domain.ErrValidation]
//   - 401/403/429/5xx and transport failures → [domain.ErrUnavailable]
//
// [QuoteSource] is the concrete adapter used by the sync loop when the
// remote source is configured as "http".
package acl

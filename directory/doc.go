// Package directory validates credentials against an LDAP directory service.
//
// Untrusted identifiers pass two independent defenses before they reach the
// wire: a strict allow-list syntax check, and context-specific escaping. The
// distinguished-name context and the search-filter context use different
// escaping rules; [EscapeBindName] and [EscapeSearchFilter] are therefore
// separate functions and must never be substituted for one another.
//
// Callers observe every failed attempt as the same authentication failure.
// The distinguishing cause (syntax, connect, bind, search) travels only
// through [Failure] for audit logging.
package directory

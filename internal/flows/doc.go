// Package flows contains the engine's orchestration logic as pure functions
// over injected dependencies. Each flow receives a deps struct of funcs so
// tests can exercise the decision tree without Redis or a directory server.
package flows

// Package handler implements the gateway's HTTP API: category prediction,
// voice entry parsing, correction logging and introspection endpoints.
package handler

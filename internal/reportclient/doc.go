// Package reportclient is the HTTP client for the report service, which
// renders charts and monthly PDF reports for the finance app.
package reportclient

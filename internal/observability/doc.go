// Package observability builds the process logger and the Sentry client.
package observability

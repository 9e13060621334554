// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when constructing session records and asserting which
// store operations a Stage performed. They are not intended for production
// usage.
package testutil

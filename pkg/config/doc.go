// Package config loads application configuration from FOODCOST_* environment
// variables with sane defaults, and validates it before the server starts.
//
// Required settings: FOODCOST_POSTGRES_URL and FOODCOST_JWT_SECRET. Everything
// else defaults to values suitable for local development.
package config

// Package domain contains the core types and interfaces shared across the
// application: proposals, votes, vote outcomes, and the repository/cache
// contracts implemented by the adapter packages.
package domain

// Package canonical loads the normalized weekly COT table and restricts it
// to the configured markets.
package canonical

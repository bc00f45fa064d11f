// Package export renders journal query results as CSV or JSON for
// offline analysis and reporting.
package export

// Package progress keeps aggregated pipeline command counters for one export run.
package progress

// Package idgen generates run ids and short unique suffixes for temp and staging paths.
package idgen

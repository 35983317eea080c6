// Package domains registers the cadet, vessel, task and assignment imports
// with the core registry. Import this package for its side effects.
package domains

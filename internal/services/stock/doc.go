// Package stock fans one media search out to every requested stock provider
// and merges the pages.
package stock

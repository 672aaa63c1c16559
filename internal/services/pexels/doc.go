// Package pexels searches the Pexels video library for scene footage.
package pexels

// Package pixabay searches Pixabay photos for scene stills.
package pixabay

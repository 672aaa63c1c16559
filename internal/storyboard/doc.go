// Package storyboard turns an approved script into ordered scenes and tracks
// the single optional stock media binding of each scene.
//
// Board is the thread-safe aggregate; Manager builds boards from scripts and
// exposes media search as a lazy, capped candidate sequence backed by a
// MediaSearch collaborator.
package storyboard

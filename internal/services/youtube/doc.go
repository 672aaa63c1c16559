// Package youtube publishes finished renders through the YouTube Data API
// using an offline refresh token.
package youtube

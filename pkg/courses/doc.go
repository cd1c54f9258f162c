// Package courses keeps an in-memory copy of the NJIT course schedule feed
// and answers course lookups against it.
//
// A Refresher pulls the discovery payload and every whitelisted semester
// into a Cache, which publishes immutable snapshots. A Resolver reads the
// latest snapshot, and the render and pagination helpers turn the result
// into code-block chunks for a chat transport.
package courses

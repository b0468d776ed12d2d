// Package ingestion runs the background poll loop.
//
// A Pipeline fetches the feed on a fixed interval, turns new entries into
// items with a feed.Tracker, inserts them into the store and hands them to
// its processors:
//   - the clustering processor counts them and re-fits topics once enough
//     have arrived
//   - the notification processor delivers each one to a notify.Notifier
//     on a worker pool
//
// Failures inside a cycle are logged and the cycle is abandoned; the next
// scheduled poll is the only retry. Only cancellation ends the loop.
package ingestion

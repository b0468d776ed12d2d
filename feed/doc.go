// Package feed turns raw feed documents into new, deduplicated items.
//
// A Fetcher downloads and parses the feed with conditional GET. A Tracker
// compares the newest entry against the last poll, skips the feed when it
// is unchanged, and otherwise emits every entry whose id has not been seen
// before, with its embedding attached. Both share a State, which is the
// only memory of previous polls.
package feed

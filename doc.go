// Package khabar ingests a single news feed into a bounded in-memory
// window and answers keyword, semantic and topic queries over it.
//
// A Desk wires the pieces together: a feed.Fetcher and feed.Tracker turn
// polls into new items, a store.Store keeps the newest ones, a
// search.Scorer ranks them against free-text queries, and a
// cluster.Coordinator groups them into topics once enough have arrived.
package khabar

// Package store holds the rolling window of recent feed items.
//
// The window is a fixed-capacity ring: inserting into a full store evicts
// the item that was inserted first, whatever its published time. Reads take
// a snapshot under a read lock and sort outside it, newest published first.
package store

// Package notify delivers newly ingested items to an external sink.
//
// The only production sink is Telegram. Delivery is best-effort: callers
// log failures and move on.
package notify

// Package cluster decides when to re-fit topics and holds the result.
//
// The Coordinator counts items added since the last fit. Once the count
// reaches the threshold, a re-fit runs over the whole current window and
// replaces every topic assignment at once. One mutex covers all state,
// including the call into the topic model, so readers never observe a
// half-applied fit.
package cluster

// Package api exposes a Service over HTTP with gin.
//
// Invalid caller input is answered with 400 and a JSON "message". Unknown
// topics are 404. Anything else is a 500 and is logged.
package api

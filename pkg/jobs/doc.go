// Package jobs tracks asynchronous invoice delivery jobs and drives
// them through the render-then-email pipeline. A job owns an ordered,
// append-only history of step results and becomes terminal exactly
// once, as completed or failed.
package jobs

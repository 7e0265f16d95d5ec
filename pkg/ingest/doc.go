// Package ingest decodes load requests from their JSON wire form and runs
// newline-delimited batches through a limit evaluator.
//
// # Wire Format
//
// Inbound:
//
//	{"id":"15887","customer_id":"528","load_amount":"$3318.47","time":"2000-01-01T00:00:00Z"}
//
// Outbound, one line per decided request (duplicates produce nothing):
//
//	{"id":"15887","customer_id":"528","accepted":true}
//
// The amount may carry a single leading "$". The time is RFC 3339; its
// offset selects the calendar day and week the load counts against.
package ingest

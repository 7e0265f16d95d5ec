// loadgate enforces per-customer velocity limits on account loads.
//
// Every load attempt is checked against a daily amount, a weekly amount and
// a daily attempt count, then recorded in a ledger so later decisions see it.
//
// Usage:
//
//	# Serve the HTTP API
//	loadgate run --config loadgate.yaml
//
//	# Evaluate an NDJSON file of loads
//	loadgate process --input input.txt --output output.txt
//
//	# Show what a customer has left today and this week
//	loadgate ledger usage --customer 528
//
//	# Check a configuration file
//	loadgate config validate --config loadgate.yaml
package main

import "os"

func main() {
	os.Exit(Execute())
}

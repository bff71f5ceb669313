// Package validation checks user-supplied payloads before they are sent
// anywhere. Validators collect every problem into a Result instead of
// stopping at the first one, and never touch the network.
package validation

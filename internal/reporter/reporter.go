/*
Package reporter defines the one-method-pair interface periodic status logging is built on. Any
long-lived component - the front-end, the health map, probe infrastructure - can present itself
as a Reporter and main will include it in the periodic status output.

Report() returns zero or more newline-separated printable lines without a trailing newline; the
caller prefixes each line with its own context (timestamp, reporter name). Empty lines are
dropped by the caller so a quiet reporter can simply return "".
*/
package reporter

// Reporter is the sole package interface
type Reporter interface {

	// Name identifies the reporting component; it is prefixed to every report line.
	Name() string

	// Report renders the component's current statistics. When resetCounters is true any
	// period-relative counters are zeroed *after* rendering. Implementations must tolerate
	// concurrent callers.
	Report(resetCounters bool) string
}

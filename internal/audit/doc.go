// Package audit records every relay actuation attempt made by the control
// engine in the actuation_log table, successful or not.
package audit

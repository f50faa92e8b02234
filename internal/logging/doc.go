// Package logger provides leveled, colorized logging for the CLI.
//
// The Logger is a small value type configured from the --verbose and --debug
// flags. Info and debug output go to stdout and are suppressed unless the
// matching flag is set; warnings and errors go to stderr.
package logger

// Package console renders agent output on a terminal.
//
// NewUTF8Writer wraps the command's output so invalid UTF-8 never reaches the
// terminal; Printer formats authorization prompts, tool markers and the
// per-query summary with fatih/color, which disables colour automatically
// when the output is not a TTY.
package console

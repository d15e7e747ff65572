// Package commands implements the bbcall command line: listing the exports
// of a native crypto module, calling them with arguments given as text, and
// an interactive terminal UI for the same.
package commands

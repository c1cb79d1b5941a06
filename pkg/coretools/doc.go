// Package coretools provides the built-in tools an agent can be given:
// search, calculate, get_time and read_file.
package coretools

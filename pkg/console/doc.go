// Package console implements the rig's text command interpreter.
package console

// The console consumes the link one byte at a time. Bytes accumulate in
// a bounded LineBuffer until a delimiter (space, tab, CR, LF) terminates
// a token; runs of delimiters collapse.
//
// A token is either a command keyword or the numeric argument of the
// previous SET_* keyword, tracked by the dispatch State. Every completed
// token produces at most one response line, written before the next
// byte is read.

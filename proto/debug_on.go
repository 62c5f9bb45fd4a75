//go:build gdbstub_debug

package proto

// debugFinalizers enables the finalizer-based detector described in
// debug_off.go, for tests and development builds.
const debugFinalizers = true

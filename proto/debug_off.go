//go:build !gdbstub_debug

package proto

// debugFinalizers gates the best-effort "unfinished ResponseWriter"
// detector behind the gdbstub_debug build tag: attaching a runtime
// finalizer to every response has a real GC cost, so production builds
// skip it and rely on the engine's own code paths (which always call
// Finish) instead.
const debugFinalizers = false

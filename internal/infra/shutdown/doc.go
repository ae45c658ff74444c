// Package shutdown coordinates graceful process termination.
//
// Hooks registered with OnShutdown run in reverse order of registration
// once a signal arrives or the parent context ends, sharing one deadline.
//
//	h := shutdown.NewHandler(30 * time.Second, logger)
//	h.OnShutdown("http", srv.Shutdown)
//	err := h.Wait(ctx)
package shutdown

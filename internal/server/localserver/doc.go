// Package localserver provides the local management socket.
//
// It listens on a Unix domain socket and reads one text command per
// line. Access is controlled by the socket file mode, so there is no
// bearer authentication:
//
//   - status: version, uptime and storage readiness
//   - policies: the active tier table
//   - level [LEVEL]: show or change the log level
//   - reload: re-read the configuration file
//   - shutdown: start a graceful shutdown
package localserver

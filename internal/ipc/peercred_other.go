//go:build !linux

package ipc

import "net"

// verifyPeerIsCurrentUser is a no-op on platforms without SO_PEERCRED.
// The socket file mode is the only access control there.
func verifyPeerIsCurrentUser(conn net.Conn) (bool, error) {
	return true, nil
}

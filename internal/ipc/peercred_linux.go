//go:build linux

package ipc

import (
	"fmt"
	"net"
	"os"
	"syscall"
)

// getPeerCredentials retrieves the credentials of the peer process
// connected to a Unix socket.
func getPeerCredentials(conn net.Conn) (*PeerCredentials, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return nil, fmt.Errorf("not a unix connection")
	}

	rawConn, err := unixConn.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("get raw conn: %w", err)
	}

	var cred *syscall.Ucred
	var credErr error

	err = rawConn.Control(func(fd uintptr) {
		cred, credErr = syscall.GetsockoptUcred(int(fd), syscall.SOL_SOCKET, syscall.SO_PEERCRED)
	})
	if err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}
	if credErr != nil {
		return nil, fmt.Errorf("getsockopt: %w", credErr)
	}

	return &PeerCredentials{
		PID: int(cred.Pid),
		UID: int(cred.Uid),
		GID: int(cred.Gid),
	}, nil
}

// verifyPeerIsCurrentUser checks that the peer runs as the same user as the
// daemon. When the daemon runs as root (for evdev access), connections from
// the desktop user that launched it via sudo are also accepted.
func verifyPeerIsCurrentUser(conn net.Conn) (bool, error) {
	cred, err := getPeerCredentials(conn)
	if err != nil {
		return false, err
	}

	if cred.UID == os.Getuid() {
		return true, nil
	}

	if os.Getuid() == 0 {
		if uid := os.Getenv("SUDO_UID"); uid != "" && uid == fmt.Sprint(cred.UID) {
			return true, nil
		}
	}

	return false, nil
}

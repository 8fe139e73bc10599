package crawl

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/hirochachacha/go-smb2"
)

// Share is the view of a mounted SMB share the crawler walks. *smb2.Share
// satisfies it; tests use an in-memory fake.
type Share interface {
	ReadDir(path string) ([]os.FileInfo, error)
	ReadFile(path string) ([]byte, error)
}

// ShareDialer mounts shares. The returned release func unmounts and logs
// off; it must be safe to call once regardless of crawl outcome.
type ShareDialer interface {
	Dial(ctx context.Context, opts *SMBOptions) (Share, func(), error)
}

// SMBDialer mounts shares over SMB2/3 with NTLM credentials.
type SMBDialer struct{}

// Dial connects to opts.Address (port 445 when unspecified), authenticates,
// and mounts opts.Share.
func (SMBDialer) Dial(ctx context.Context, opts *SMBOptions) (Share, func(), error) {
	addr := opts.Address
	if !strings.Contains(addr, ":") {
		addr += ":445"
	}

	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to smb host %s: %w", addr, err)
	}

	dialer := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     opts.Username,
			Password: opts.Password,
			Domain:   opts.Domain,
		},
	}

	session, err := dialer.DialContext(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to authenticate to smb host %s: %w", addr, err)
	}

	share, err := session.Mount(opts.Share)
	if err != nil {
		session.Logoff()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to mount share %s on %s: %w", opts.Share, addr, err)
	}

	release := func() {
		share.Umount()
		session.Logoff()
		conn.Close()
	}
	return share, release, nil
}

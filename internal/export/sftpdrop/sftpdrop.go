// Package sftpdrop implements export.Dropzone over SFTP, for ERPs that
// expose an inbound/outbound directory pair behind an SSH endpoint
// instead of a shared filesystem mount.
package sftpdrop

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Dropzone is an SFTP-backed export.Dropzone. A single *sftp.Client is
// shared across calls; Dial builds one from host/credentials.
type Dropzone struct {
	Client       *sftp.Client
	OutDir       string
	AckDir       string
	ProcessedDir string
	ErrorDir     string
}

// Dial opens an SSH connection and an SFTP subsystem client against
// addr using the given client config (key or password auth is the
// caller's concern — this just wires the transport).
func Dial(addr string, cfg *ssh.ClientConfig) (*Dropzone, func() error, error) {
	conn, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("sftpdrop: ssh dial: %w", err)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("sftpdrop: sftp client: %w", err)
	}
	closeFn := func() error {
		cErr := client.Close()
		sErr := conn.Close()
		if cErr != nil {
			return cErr
		}
		return sErr
	}
	return &Dropzone{Client: client}, closeFn, nil
}

func (d *Dropzone) WriteAtomic(ctx context.Context, name string, data []byte) error {
	target := path.Join(d.OutDir, name)
	if _, err := d.Client.Stat(target); err == nil {
		ext := path.Ext(name)
		base := name[:len(name)-len(ext)]
		name = base + "-" + uuid.NewString()[:8] + ext
		target = path.Join(d.OutDir, name)
	}
	tmp := target + ".tmp-" + uuid.NewString()[:8]
	f, err := d.Client.Create(tmp)
	if err != nil {
		return fmt.Errorf("sftpdrop: create temp: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = d.Client.Remove(tmp)
		return fmt.Errorf("sftpdrop: write temp: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = d.Client.Remove(tmp)
		return fmt.Errorf("sftpdrop: close temp: %w", err)
	}
	if err := d.Client.Rename(tmp, target); err != nil {
		_ = d.Client.Remove(tmp)
		return fmt.Errorf("sftpdrop: rename into place: %w", err)
	}
	return nil
}

func (d *Dropzone) ListAcks(ctx context.Context) ([]string, error) {
	entries, err := d.Client.ReadDir(d.AckDir)
	if err != nil {
		return nil, fmt.Errorf("sftpdrop: list acks: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (d *Dropzone) ReadAck(ctx context.Context, name string) ([]byte, error) {
	f, err := d.Client.Open(path.Join(d.AckDir, name))
	if err != nil {
		return nil, fmt.Errorf("sftpdrop: open ack %s: %w", name, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("sftpdrop: read ack %s: %w", name, err)
	}
	return b, nil
}

func (d *Dropzone) MoveAck(ctx context.Context, name string, processed bool) error {
	dest := d.ErrorDir
	if processed {
		dest = d.ProcessedDir
	}
	if err := d.Client.MkdirAll(dest); err != nil {
		return fmt.Errorf("sftpdrop: mkdir %s: %w", dest, err)
	}
	if err := d.Client.Rename(path.Join(d.AckDir, name), path.Join(dest, name)); err != nil {
		return fmt.Errorf("sftpdrop: move ack %s: %w", name, err)
	}
	return nil
}

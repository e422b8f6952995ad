// Package fsdrop implements export.Dropzone against a local directory
// tree, for on-prem ERPs that poll a shared filesystem mount instead of
// an SFTP server.
package fsdrop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Dropzone is a filesystem-backed export.Dropzone. OutDir is the
// directory an ERP watches for new export files; AckDir is the
// directory it writes ack_*.json/error_*.json into; ProcessedDir and
// ErrorDir receive ack files once reconciled.
type Dropzone struct {
	OutDir        string
	AckDir        string
	ProcessedDir  string
	ErrorDir      string
}

// WriteAtomic writes to a temp file in OutDir and renames it into
// place, so a concurrent reader never observes a partial file. If name
// already exists (a NAME_COLLISION), it retries once with a short
// random suffix before giving up.
func (d *Dropzone) WriteAtomic(ctx context.Context, name string, data []byte) error {
	target := filepath.Join(d.OutDir, name)
	if _, err := os.Stat(target); err == nil {
		name = collisionSuffix(name)
		target = filepath.Join(d.OutDir, name)
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("fsdrop: name collision persisted for %s", name)
		}
	}
	tmp := target + ".tmp-" + uuid.NewString()[:8]
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("fsdrop: write temp: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("fsdrop: rename into place: %w", err)
	}
	return nil
}

func collisionSuffix(name string) string {
	ext := filepath.Ext(name)
	base := name[:len(name)-len(ext)]
	return base + "-" + uuid.NewString()[:8] + ext
}

func (d *Dropzone) ListAcks(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.AckDir)
	if err != nil {
		return nil, fmt.Errorf("fsdrop: list acks: %w", err)
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
	b, err := os.ReadFile(filepath.Join(d.AckDir, name))
	if err != nil {
		return nil, fmt.Errorf("fsdrop: read ack %s: %w", name, err)
	}
	return b, nil
}

func (d *Dropzone) MoveAck(ctx context.Context, name string, processed bool) error {
	dest := d.ErrorDir
	if processed {
		dest = d.ProcessedDir
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("fsdrop: mkdir %s: %w", dest, err)
	}
	src := filepath.Join(d.AckDir, name)
	if err := os.Rename(src, filepath.Join(dest, name)); err != nil {
		return fmt.Errorf("fsdrop: move ack %s: %w", name, err)
	}
	return nil
}

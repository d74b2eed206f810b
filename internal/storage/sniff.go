package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	ErrEmptyArtifact        = errors.New("artifact is empty")
	ErrUnrecognizedArtifact = errors.New("artifact is not a recognized media container")
)

// Container is a media container recognized from its leading bytes.
type Container string

const (
	ContainerWebM Container = "webm"
	ContainerMP4  Container = "mp4"
)

var ebmlMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}

// SniffContainer identifies WebM (EBML header) and MP4 (ftyp box) data.
func SniffContainer(header []byte) (Container, bool) {
	if bytes.HasPrefix(header, ebmlMagic) {
		return ContainerWebM, true
	}
	if len(header) >= 8 && string(header[4:8]) == "ftyp" {
		return ContainerMP4, true
	}
	return "", false
}

// Verify checks that key exists, is non-empty and starts with a known
// container header. It returns the size in bytes.
func Verify(ctx context.Context, store BlobStore, key string) (int64, Container, error) {
	rc, size, err := store.Open(ctx, key)
	if err != nil {
		return 0, "", err
	}
	defer rc.Close()

	if size == 0 {
		return 0, "", ErrEmptyArtifact
	}
	header := make([]byte, 12)
	n, err := io.ReadFull(rc, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, "", fmt.Errorf("read artifact header: %w", err)
	}
	container, ok := SniffContainer(header[:n])
	if !ok {
		return 0, "", ErrUnrecognizedArtifact
	}
	return size, container, nil
}

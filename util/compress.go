package util

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// backupMagic starts every backup file.
var backupMagic = [4]byte{'W', 'F', 'S', 'Z'}

// BackupHeader precedes the zstd stream in a backup file.
type BackupHeader struct {
	Magic  [4]byte
	Size   uint64
	Digest [32]byte // BLAKE3-256 of the uncompressed image
}

// BackupImage writes a zstd-compressed copy of the image at src to dst.
// The header records the image size and digest so RestoreImage can
// verify what it unpacks.
func BackupImage(src, dst string) (BackupHeader, error) {
	in, err := os.Open(src)
	if err != nil {
		return BackupHeader{}, err
	}
	defer in.Close()

	hdr := BackupHeader{Magic: backupMagic}
	h := blake3.New()
	n, err := io.Copy(h, in)
	if err != nil {
		return BackupHeader{}, fmt.Errorf("hashing %s: %w", src, err)
	}
	hdr.Size = uint64(n)
	copy(hdr.Digest[:], h.Sum(nil))
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return BackupHeader{}, err
	}

	out, err := os.Create(dst)
	if err != nil {
		return BackupHeader{}, err
	}
	bw := bufio.NewWriter(out)
	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		out.Close()
		return BackupHeader{}, err
	}
	zw, err := zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		out.Close()
		return BackupHeader{}, err
	}
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		out.Close()
		return BackupHeader{}, fmt.Errorf("compressing %s: %w", src, err)
	}
	if err := errors.Join(zw.Close(), bw.Flush()); err != nil {
		out.Close()
		return BackupHeader{}, err
	}
	return hdr, out.Close()
}

// ReadBackupHeader reads and checks the header of a backup file.
func ReadBackupHeader(r io.Reader) (BackupHeader, error) {
	var hdr BackupHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return hdr, ErrNotBackup
		}
		return hdr, err
	}
	if hdr.Magic != backupMagic {
		return hdr, ErrNotBackup
	}
	return hdr, nil
}

// RestoreImage unpacks the backup at src into dst. The image is written
// to a temporary file next to dst and renamed into place only after its
// size and digest match the header.
func RestoreImage(src, dst string) (BackupHeader, error) {
	in, err := os.Open(src)
	if err != nil {
		return BackupHeader{}, err
	}
	defer in.Close()

	br := bufio.NewReader(in)
	hdr, err := ReadBackupHeader(br)
	if err != nil {
		return hdr, fmt.Errorf("%s: %w", src, err)
	}
	zr, err := zstd.NewReader(br)
	if err != nil {
		return hdr, err
	}
	defer zr.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".restore-*")
	if err != nil {
		return hdr, err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return hdr, err
	}

	h := blake3.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), zr)
	if err != nil {
		tmp.Close()
		return hdr, fmt.Errorf("decompressing %s: %w", src, err)
	}
	if uint64(n) != hdr.Size || !bytes.Equal(h.Sum(nil), hdr.Digest[:]) {
		tmp.Close()
		return hdr, fmt.Errorf("%s: %w", src, ErrBackupMismatch)
	}
	if err := errors.Join(tmp.Sync(), tmp.Close()); err != nil {
		return hdr, err
	}
	return hdr, os.Rename(tmp.Name(), dst)
}

// Package cache implements the compile-once object cache: a sibling
// `<stem>.<machine>.o` file next to each source, a mtime-equality
// freshness oracle, and the binary object format driver.WriteOutput and
// importmod's `.o` loader share.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/cosmorun/cosmorun/internal/cosmorunerr"
	"github.com/cosmorun/cosmorun/internal/platform"
)

const magic = "COSMOBJ1"

// Object is the compiled result serialized to a cache file: the relocated
// code bytes and the offsets (within Code) of every symbol the unit
// defines, plus the architecture it was compiled for so a stale cache
// built for the wrong machine is rejected outright rather than loaded and
// crashed into.
type Object struct {
	Arch    platform.Arch
	Symbols map[string]uint64
	Code    []byte
}

// Encode serializes obj into cosmorun's object format: an 8-byte magic,
// one architecture byte, a symbol table of (namelen uint16, name,
// offset uint64) tuples, and the raw code bytes.
func Encode(obj Object) []byte {
	var buf bytes.Buffer
	buf.WriteString(magic)
	buf.WriteByte(byte(obj.Arch))

	names := make([]string, 0, len(obj.Symbols))
	for name := range obj.Symbols {
		names = append(names, name)
	}
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(names)))
	buf.Write(countBuf[:])

	for _, name := range names {
		var nameLen [2]byte
		binary.LittleEndian.PutUint16(nameLen[:], uint16(len(name)))
		buf.Write(nameLen[:])
		buf.WriteString(name)
		var off [8]byte
		binary.LittleEndian.PutUint64(off[:], obj.Symbols[name])
		buf.Write(off[:])
	}

	var codeLen [8]byte
	binary.LittleEndian.PutUint64(codeLen[:], uint64(len(obj.Code)))
	buf.Write(codeLen[:])
	buf.Write(obj.Code)

	return buf.Bytes()
}

// Decode parses bytes produced by Encode.
func Decode(data []byte) (Object, error) {
	if len(data) < len(magic)+1+4 || string(data[:len(magic)]) != magic {
		return Object{}, cosmorunerr.New(cosmorunerr.KindIO, "not a cosmorun object file (bad magic)")
	}
	off := len(magic)
	arch := platform.Arch(data[off])
	off++
	count := binary.LittleEndian.Uint32(data[off : off+4])
	off += 4

	symbols := make(map[string]uint64, count)
	for i := uint32(0); i < count; i++ {
		if off+2 > len(data) {
			return Object{}, cosmorunerr.New(cosmorunerr.KindIO, "truncated object file symbol table")
		}
		nameLen := int(binary.LittleEndian.Uint16(data[off : off+2]))
		off += 2
		if off+nameLen+8 > len(data) {
			return Object{}, cosmorunerr.New(cosmorunerr.KindIO, "truncated object file symbol entry")
		}
		name := string(data[off : off+nameLen])
		off += nameLen
		symbols[name] = binary.LittleEndian.Uint64(data[off : off+8])
		off += 8
	}

	if off+8 > len(data) {
		return Object{}, cosmorunerr.New(cosmorunerr.KindIO, "truncated object file code length")
	}
	codeLen := binary.LittleEndian.Uint64(data[off : off+8])
	off += 8
	if uint64(off)+codeLen > uint64(len(data)) {
		return Object{}, cosmorunerr.New(cosmorunerr.KindIO, "truncated object file code section")
	}
	code := append([]byte(nil), data[off:uint64(off)+codeLen]...)

	return Object{Arch: arch, Symbols: symbols, Code: code}, nil
}

// WriteObject encodes obj and writes it to path.
func WriteObject(path string, obj Object) error {
	if err := os.WriteFile(path, Encode(obj), 0o644); err != nil {
		return cosmorunerr.Wrap(cosmorunerr.KindIO, err, "writing object file %s", path)
	}
	return nil
}

// ReadObject reads and decodes path.
func ReadObject(path string) (Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Object{}, cosmorunerr.Wrap(cosmorunerr.KindIO, err, "reading object file %s", path)
	}
	obj, err := Decode(data)
	if err != nil {
		return Object{}, err
	}
	return obj, nil
}

// WriteSidecarHash writes a `<path>.sha256` file containing the hex SHA-256
// of data. Purely diagnostic (spec §9): never consulted by IsFresh, only
// useful for a human or CI job to confirm a cache entry's integrity
// out-of-band.
func WriteSidecarHash(path string, data []byte) error {
	sum := sha256.Sum256(data)
	sidecar := path + ".sha256"
	content := fmt.Sprintf("%s  %s\n", hex.EncodeToString(sum[:]), path)
	if err := os.WriteFile(sidecar, []byte(content), 0o644); err != nil {
		return cosmorunerr.Wrap(cosmorunerr.KindIO, err, "writing sidecar hash %s", sidecar)
	}
	return nil
}

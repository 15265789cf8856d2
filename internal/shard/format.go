package shard

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
)

// Shard file layout, all integers little-endian:
//
//	magic    [4]byte  "SVSH"
//	version  uint16
//	dims     uint16
//	count    uint32
//	entries:
//	  keyLen uint16
//	  key    [keyLen]byte UTF-8
//	  vector [dims]float32
var shardMagic = [4]byte{'S', 'V', 'S', 'H'}

const shardFormatVersion = 1

type shardHeader struct {
	Version uint16
	Dims    uint16
	Count   uint32
}

func writeHeader(w io.Writer, h shardHeader) error {
	if _, err := w.Write(shardMagic[:]); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, h)
}

func readHeader(r io.Reader) (shardHeader, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return shardHeader{}, err
	}
	if magic != shardMagic {
		return shardHeader{}, errBadMagic
	}
	var h shardHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return shardHeader{}, err
	}
	return h, nil
}

func writeEntry(w *bufio.Writer, key string, vec []float32) error {
	if err := binary.Write(w, binary.LittleEndian, uint16(len(key))); err != nil {
		return err
	}
	if _, err := w.WriteString(key); err != nil {
		return err
	}
	buf := make([]byte, 4)
	for _, v := range vec {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func readEntry(r io.Reader, dims int) (string, []float32, error) {
	var keyLen uint16
	if err := binary.Read(r, binary.LittleEndian, &keyLen); err != nil {
		return "", nil, err
	}
	keyBuf := make([]byte, keyLen)
	if _, err := io.ReadFull(r, keyBuf); err != nil {
		return "", nil, err
	}
	vecBuf := make([]byte, dims*4)
	if _, err := io.ReadFull(r, vecBuf); err != nil {
		return "", nil, err
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(vecBuf[i*4:]))
	}
	return string(keyBuf), vec, nil
}

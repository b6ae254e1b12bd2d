package index

import (
	"bytes"
	"encoding/binary"
	"time"
)

// key = invTime(8) + 0x00 + id, newest first under a forward cursor
func makeTimeIDKey(t time.Time, id string) []byte {
	buf := make([]byte, 8, 8+1+len(id))
	binary.BigEndian.PutUint64(buf, ^uint64(t.UnixNano()))
	buf = append(buf, 0x00)
	buf = append(buf, id...)
	return buf
}

func idFromTimeIDKey(k []byte) string {
	if len(k) < 8+2 {
		return ""
	}
	i := bytes.IndexByte(k[8:], 0x00)
	if i < 0 {
		return ""
	}
	pos := 8 + i
	if pos+1 >= len(k) {
		return ""
	}
	return string(k[pos+1:])
}

func seqKey(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

package inflate

import (
	"encoding/binary"
	"fmt"
	"io"
)

// magic identifies the uncompressed diff payload format.
var magic = [4]byte{'P', 'C', 'D', 'F'}

const formatVersion = 1

// The uncompressed diff payload (before zstd) is:
//
//	magic      [4]byte
//	version    uint8
//	newSize    uvarint
//	records... until newpos reaches newSize
//
// Each record is:
//
//	copyLen    uvarint  -- number of bytes to add to the base file
//	extraLen   uvarint  -- number of bytes to insert literally
//	seek       varint (zigzag) -- base-file position adjustment applied
//	           after the copy block, before the next record's copy block
//	diff       [copyLen]byte -- added byte-by-byte to the base file
//	extra      [extraLen]byte -- appended to the output verbatim
//
// This is the classic bsdiff control/diff/extra encoding, with the
// three logical streams interleaved per-record rather than stored as
// three contiguous blocks, so a single pipe can carry the whole
// payload in the order the consumer needs it.
func applyPatch(diff io.Reader, base io.ReadSeeker, out io.Writer) error {
	var header [5]byte

	if _, err := io.ReadFull(diff, header[:]); err != nil {
		return fmt.Errorf("reading diff header: %w", err)
	}

	if header[0] != magic[0] || header[1] != magic[1] || header[2] != magic[2] || header[3] != magic[3] {
		return fmt.Errorf("bad diff magic")
	}

	if header[4] != formatVersion {
		return fmt.Errorf("unsupported diff format version %d", header[4])
	}

	br := &byteReader{r: diff}

	newSize, err := binary.ReadUvarint(br)
	if err != nil {
		return fmt.Errorf("reading new size: %w", err)
	}

	var (
		newPos int64
		oldPos int64
	)

	for uint64(newPos) < newSize {
		copyLen, err := binary.ReadUvarint(br)
		if err != nil {
			return fmt.Errorf("reading copy length: %w", err)
		}

		extraLen, err := binary.ReadUvarint(br)
		if err != nil {
			return fmt.Errorf("reading extra length: %w", err)
		}

		seek, err := binary.ReadVarint(br)
		if err != nil {
			return fmt.Errorf("reading seek offset: %w", err)
		}

		if copyLen > 0 {
			diffChunk := make([]byte, copyLen)
			if _, err := io.ReadFull(diff, diffChunk); err != nil {
				return fmt.Errorf("reading diff chunk: %w", err)
			}

			if _, err := base.Seek(oldPos, io.SeekStart); err != nil {
				return fmt.Errorf("seeking base file: %w", err)
			}

			baseChunk := make([]byte, copyLen)
			if _, err := io.ReadFull(base, baseChunk); err != nil {
				return fmt.Errorf("reading base file: %w", err)
			}

			for i := range diffChunk {
				diffChunk[i] += baseChunk[i]
			}

			if _, err := out.Write(diffChunk); err != nil {
				return fmt.Errorf("writing patched chunk: %w", err)
			}

			newPos += int64(copyLen)
			oldPos += int64(copyLen)
		}

		if extraLen > 0 {
			extraChunk := make([]byte, extraLen)
			if _, err := io.ReadFull(diff, extraChunk); err != nil {
				return fmt.Errorf("reading extra chunk: %w", err)
			}

			if _, err := out.Write(extraChunk); err != nil {
				return fmt.Errorf("writing extra chunk: %w", err)
			}

			newPos += int64(extraLen)
		}

		oldPos += seek
	}

	return nil
}

// byteReader adapts an io.Reader to io.ByteReader for binary.ReadUvarint.
type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(b.r, b.buf[:]); err != nil {
		return 0, err
	}

	return b.buf[0], nil
}

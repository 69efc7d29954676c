package world

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"worldgen/internal/cell"
)

const snapshotVersion = 1

// SnapshotHeader is written as a JSON line ahead of the gob payload so tools
// can identify a snapshot without decoding it.
type SnapshotHeader struct {
	Version int     `json:"version"`
	RX      int     `json:"rx"`
	RZ      int     `json:"rz"`
	Size    int     `json:"size"`
	Border  int     `json:"border"`
	OriginX float64 `json:"origin_x"`
	OriginZ float64 `json:"origin_z"`
	Step    float64 `json:"step"`
	Digest  string  `json:"digest"`
}

type snapshotV1 struct {
	Header SnapshotHeader
	Cells  []cell.Cell
}

// WriteSnapshot streams a zstd-compressed snapshot of r to w.
func WriteSnapshot(w io.Writer, r *Region) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	snap := snapshotV1{
		Header: SnapshotHeader{
			Version: snapshotVersion,
			RX:      r.Coord.X,
			RZ:      r.Coord.Z,
			Size:    r.size,
			Border:  r.border,
			OriginX: r.originX,
			OriginZ: r.originZ,
			Step:    r.step,
			Digest:  r.Digest(),
		},
		Cells: r.cells,
	}
	hb, err := json.Marshal(snap.Header)
	if err != nil {
		enc.Close()
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadSnapshot decodes a snapshot and verifies its digest. The returned
// region has no populator; chunk views over it can Iterate but not Generate.
func ReadSnapshot(rd io.Reader) (*Region, SnapshotHeader, error) {
	dec, err := zstd.NewReader(rd)
	if err != nil {
		return nil, SnapshotHeader{}, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return nil, SnapshotHeader{}, fmt.Errorf("read header: %w", err)
	}
	var header SnapshotHeader
	if err := json.Unmarshal(line, &header); err != nil {
		return nil, header, fmt.Errorf("decode header: %w", err)
	}
	if header.Version != snapshotVersion {
		return nil, header, fmt.Errorf("unsupported snapshot version %d", header.Version)
	}

	var snap snapshotV1
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return nil, header, fmt.Errorf("gob decode: %w", err)
	}
	width := header.Size + 2*header.Border
	if len(snap.Cells) != width*width {
		return nil, header, fmt.Errorf("snapshot holds %d cells, want %d", len(snap.Cells), width*width)
	}

	r := &Region{
		Coord:   RegionCoord{X: header.RX, Z: header.RZ},
		size:    header.Size,
		border:  header.Border,
		width:   width,
		originX: header.OriginX,
		originZ: header.OriginZ,
		step:    header.Step,
		cells:   snap.Cells,
	}
	if got := r.Digest(); got != header.Digest {
		return nil, header, fmt.Errorf("snapshot digest mismatch: header %s, cells %s", header.Digest, got)
	}
	r.complete.Store(true)
	return r, header, nil
}

// SaveSnapshot writes r to path, creating parent directories.
func SaveSnapshot(path string, r *Region) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := WriteSnapshot(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func LoadSnapshot(path string) (*Region, SnapshotHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, SnapshotHeader{}, err
	}
	defer f.Close()
	return ReadSnapshot(f)
}

// SnapshotName is the file name used for region (rx, rz).
func SnapshotName(rx, rz int) string {
	return fmt.Sprintf("region_%d_%d.snap.zst", rx, rz)
}

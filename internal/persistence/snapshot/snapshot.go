package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	TickRate           int `json:"tick_rate_hz"`
	SnapshotEveryTicks int `json:"snapshot_every_ticks,omitempty"`
	HopperSlots        int `json:"hopper_slots"`
	ChestSlots         int `json:"chest_slots"`

	ItemsDigest   string `json:"items_digest,omitempty"`
	RecipesDigest string `json:"recipes_digest,omitempty"`

	Blocks     []BlockV1     `json:"blocks"`
	Containers []ContainerV1 `json:"containers"`
	Frames     []FrameV1     `json:"frames,omitempty"`
	Switches   []SwitchV1    `json:"switches,omitempty"`

	Counters CountersV1 `json:"counters"`
}

type CountersV1 struct {
	Attempts  uint64 `json:"attempts"`
	Committed uint64 `json:"committed"`
}

type BlockV1 struct {
	Pos    [3]int `json:"pos"`
	Block  string `json:"block"`
	Facing [3]int `json:"facing,omitempty"`
}

type ContainerV1 struct {
	Type  string      `json:"type"`
	Pos   [3]int      `json:"pos"`
	Slots []ItemStack `json:"slots"`
}

type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type FrameV1 struct {
	Pos      [3]int `json:"pos"`
	Attached [3]int `json:"attached"`
	Item     string `json:"item,omitempty"`
}

type SwitchV1 struct {
	Pos   [3]int `json:"pos"`
	Level int    `json:"level"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is duplicated inside the gob payload.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

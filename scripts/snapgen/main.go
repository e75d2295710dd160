package main

import (
	"flag"
	"log"
	"math/rand"
	"time"

	"MemSpectra/internal/config"
	"MemSpectra/internal/probe"
	"MemSpectra/internal/wire"
)

// snapgen publishes synthetic memory snapshot chunks over NATS for local
// end-to-end runs of ms-engine. Each timestamp is split across two chunks to
// exercise multi-chunk accumulation; every snapshot carries a shared-memory
// node and a cross-process ownership edge.
func main() {
	natsURL := flag.String("nats", "nats://127.0.0.1:4222", "NATS server URL")
	subject := flag.String("subject", "memspectra.chunks", "NATS subject to publish to")
	snapshots := flag.Int("c", 10, "Number of logical snapshots to generate")
	interval := flag.Duration("i", 100*time.Millisecond, "Delay between snapshots")
	flag.Parse()

	pub, err := probe.NewPublisher(config.ProbeConfig{NATSURL: *natsURL, Subject: *subject})
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}
	defer pub.Close()

	log.Printf("Publishing %d snapshots to '%s'...", *snapshots, *subject)

	ts := time.Now().UnixNano()
	for i := 0; i < *snapshots; i++ {
		for _, chunk := range makeChunks(uint64(i + 1)) {
			if err := pub.Publish(ts, wire.MarshalSnapshot(chunk)); err != nil {
				log.Fatalf("Failed to publish chunk: %v", err)
			}
		}
		ts += int64(*interval)
		time.Sleep(*interval)
	}
	log.Println("Done.")
}

// makeChunks builds the two chunks of one logical snapshot: one for a
// browser-like process, one for a renderer-like process plus the shared
// region both reference.
func makeChunks(dumpID uint64) []*wire.Snapshot {
	heapSize := uint64(rand.Intn(1<<20) + 1<<16)
	sharedSize := uint64(rand.Intn(1<<18) + 1<<12)

	first := &wire.Snapshot{
		GlobalDumpID:  dumpID,
		LevelOfDetail: 0,
		Processes: []wire.ProcessSnapshot{
			{
				Pid: 101,
				Nodes: []wire.MemoryNode{
					{
						ID:           dumpID<<8 | 1,
						AbsoluteName: "malloc",
						SizeBytes:    heapSize,
						HasSizeBytes: true,
						Entries: []wire.NodeEntry{
							{Name: "allocated_objects", Units: 2, ValueUint64: uint64(rand.Intn(5000)), HasValueUint64: true},
						},
					},
					{
						ID:           dumpID<<8 | 2,
						AbsoluteName: "malloc/allocated",
						Entries: []wire.NodeEntry{
							{Name: "fragmentation", Units: 1, ValueUint64: heapSize / 10, HasValueUint64: true},
						},
					},
				},
			},
		},
	}

	second := &wire.Snapshot{
		GlobalDumpID:  dumpID,
		LevelOfDetail: 0,
		Processes: []wire.ProcessSnapshot{
			{
				Pid: 202,
				Nodes: []wire.MemoryNode{
					{
						ID:           dumpID<<8 | 3,
						AbsoluteName: "v8/heap",
						SizeBytes:    heapSize / 2,
						HasSizeBytes: true,
					},
					{
						ID:           dumpID<<8 | 4,
						AbsoluteName: "global/shared_memory",
						SizeBytes:    sharedSize,
						HasSizeBytes: true,
						Entries: []wire.NodeEntry{
							{Name: "type", ValueString: "ashmem", HasValueString: true},
						},
					},
				},
				Edges: []wire.MemoryEdge{
					{SourceID: dumpID<<8 | 3, TargetID: dumpID<<8 | 4, Importance: 2},
				},
			},
		},
	}

	return []*wire.Snapshot{first, second}
}

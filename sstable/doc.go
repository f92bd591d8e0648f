// Package sstable implements a Sorted String Table (SSTable) record format:
// an immutable file of records ordered by a key extracted from each record,
// followed by a dense key index.
//
// The writer buffers encoded records in a btree and writes the whole table
// when it is closed, so records may be written in any order. Records with
// equal keys keep their write order.
//
// The reader loads the index when it is opened. Counting is therefore free,
// every record is reachable by position, and Get finds a record by key with
// a binary search.
//
// Merge combines several tables into any record writer in key order.
//
// Basic usage:
//
//	w := sstable.NewWriter(file, codec.Gob[Molecule]{}, func(m Molecule) string {
//	    return m.Name
//	})
//	if err := w.Write(mol); err != nil {
//	    log.Fatal(err)
//	}
//	w.Close()
//
//	src, err := sstable.NewSource(file, codec.Gob[Molecule]{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer src.Close()
//
//	var m Molecule
//	err = src.Get("benzene", &m)
//
// File Format:
//   - Header (16 bytes):
//   - Magic number (8 bytes, "SSTB" in hex)
//   - Format version (8 bytes)
//   - Records:
//   - recordio frames in key order, each holding one codec payload
//   - Index:
//   - Count of index entries (8 bytes)
//   - One (key, offset) pair per record
//   - Footer (16 bytes):
//   - Index offset (8 bytes)
//   - Magic number (8 bytes, "ENDB" in hex)
package sstable

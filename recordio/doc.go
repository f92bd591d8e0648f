// Package recordio implements a framed binary record stream. Each frame is
// the magic bytes "REC", a little-endian uint64 payload length and the
// payload, which a codec.Codec turns into a record value.
//
// Readers build a table of frame offsets on demand, so records can be read
// in any order once their frame has been located. Counting records scans
// only the frame headers and reports progress by bytes.
//
// Basic usage:
//
//	w := recordio.NewWriter[chem.Molecule](file, codec.Gob[chem.Molecule]{})
//	if err := w.Write(mol); err != nil {
//	    log.Fatal(err)
//	}
//	w.Close()
//
//	r, err := recordio.NewReader[chem.Molecule](file, codec.Gob[chem.Molecule]{})
//	n, err := r.NumRecords()
//
// The low level Write, ReadFrame and Seq functions operate on raw payloads.
package recordio
